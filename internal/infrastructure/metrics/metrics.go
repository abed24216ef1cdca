// Package metrics exposes Prometheus collectors for turns, engine calls,
// sessions and dataset reloads.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
)

var (
	once sync.Once

	turnLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storeinsights_turn_latency_ms",
		Help:    "Latency of a whole turn in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 80000},
	}, []string{"path"})

	turnSubquestions = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storeinsights_turn_subquestions",
		Help:    "Number of sub-questions dispatched per decomposed turn",
		Buckets: []float64{1, 2, 3, 4, 5, 8, 12},
	})

	subquestionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storeinsights_subquestion_failures_total",
		Help: "Sub-questions answered with an error block",
	})

	engineCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storeinsights_engine_calls_total",
		Help: "Answering engine calls by outcome",
	}, []string{"ok"})

	engineLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storeinsights_engine_latency_ms",
		Help:    "Latency of answering engine calls in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000},
	})

	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storeinsights_active_sessions",
		Help: "Live chat sessions",
	})

	datasetReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storeinsights_dataset_reloads_total",
		Help: "Dataset reloads by result",
	}, []string{"result"})

	datasetRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storeinsights_dataset_rows",
		Help: "Rows in the current dataset snapshot",
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(turnLatency, turnSubquestions, subquestionFailures,
			engineCalls, engineLatency, activeSessions, datasetReloads, datasetRows)
	})
}

// Observer implements ports.TurnObserver on the package collectors.
type Observer struct{}

// NewObserver registers the collectors and returns an Observer.
func NewObserver() Observer {
	ensureRegistered()
	return Observer{}
}

// ObserveTurn records one turn.
func (Observer) ObserveTurn(path ports.TurnPath, subquestions, failures int, elapsed time.Duration) {
	turnLatency.WithLabelValues(string(path)).Observe(float64(elapsed.Milliseconds()))
	if path == ports.PathDecomposed {
		turnSubquestions.Observe(float64(subquestions))
	}
	subquestionFailures.Add(float64(failures))
}

// ObserveEngineCall records one answering engine call.
func (Observer) ObserveEngineCall(elapsed time.Duration, err error) {
	engineCalls.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
	engineLatency.Observe(float64(elapsed.Milliseconds()))
}

// SetActiveSessions sets the live session gauge.
func SetActiveSessions(n int) {
	ensureRegistered()
	activeSessions.Set(float64(n))
}

// ObserveReload records a dataset (re)load and the resulting row count.
func ObserveReload(rows int, err error) {
	ensureRegistered()
	if err != nil {
		datasetReloads.WithLabelValues("error").Inc()
		return
	}
	datasetReloads.WithLabelValues("ok").Inc()
	datasetRows.Set(float64(rows))
}

// Handler serves the default registry.
func Handler() http.Handler {
	ensureRegistered()
	return promhttp.Handler()
}
