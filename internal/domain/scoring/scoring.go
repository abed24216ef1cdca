// Package scoring derives a composite performance score from six metric columns.
// Everything here is a pure function of its input columns.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
)

// Column names read from and written to the Dataset.
const (
	ColNetSales         = "Net Sales"
	ColTransactionCount = "Transaction Count"
	ColBeverageCount    = "Beverage Count"
	ColServiceSeconds   = "Speed of Service Total Seconds"
	ColDiscountAmount   = "Discount Total Amount"
	ColCashOverShort    = "Cash Over/Short"

	ColAvgTransaction = "Avg Transaction Amount"
	ColComposite      = "Composite Score"
)

// MetricColumns lists the input columns Score requires.
var MetricColumns = []string{
	ColNetSales,
	ColTransactionCount,
	ColBeverageCount,
	ColServiceSeconds,
	ColDiscountAmount,
	ColCashOverShort,
}

var (
	// ErrMissingColumn is returned when a required metric column is absent.
	ErrMissingColumn = errors.New("missing metric column")

	// ErrInvalidWeights is returned when weights are negative or do not sum to 1.
	ErrInvalidWeights = errors.New("invalid weights")
)

const weightTolerance = 1e-9

// Weights holds the contribution of each normalized signal.
type Weights struct {
	NetSales       float64 `yaml:"net_sales" json:"net_sales"`
	AvgTransaction float64 `yaml:"avg_transaction" json:"avg_transaction"`
	BeverageCount  float64 `yaml:"beverage_count" json:"beverage_count"`
	ServiceSeconds float64 `yaml:"service_seconds" json:"service_seconds"`
	DiscountAmount float64 `yaml:"discount_amount" json:"discount_amount"`
	CashOverShort  float64 `yaml:"cash_over_short" json:"cash_over_short"`
}

// DefaultWeights returns 0.30, 0.25, 0.15, 0.15, 0.10, 0.05.
func DefaultWeights() Weights {
	return Weights{
		NetSales:       0.30,
		AvgTransaction: 0.25,
		BeverageCount:  0.15,
		ServiceSeconds: 0.15,
		DiscountAmount: 0.10,
		CashOverShort:  0.05,
	}
}

func (w Weights) ordered() [6]float64 {
	return [6]float64{w.NetSales, w.AvgTransaction, w.BeverageCount, w.ServiceSeconds, w.DiscountAmount, w.CashOverShort}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w.ordered() {
		s += v
	}
	return s
}

// Validate enforces non-negative weights summing to 1.
func (w Weights) Validate() error {
	for _, v := range w.ordered() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight %v", ErrInvalidWeights, v)
		}
	}
	if s := w.Sum(); math.Abs(s-1) > weightTolerance {
		return fmt.Errorf("%w: sum is %v, want 1", ErrInvalidWeights, s)
	}
	return nil
}

// Score returns a copy of ds with Avg Transaction Amount and Composite Score
// columns set. Existing columns are left untouched; re-scoring a scored
// Dataset replaces the two derived columns.
func Score(ds *entities.Dataset, w Weights) (*entities.Dataset, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	metrics := make(map[string][]float64, len(MetricColumns))
	for _, name := range MetricColumns {
		col, ok := ds.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		metrics[name] = Floats(col)
	}

	avg := AvgTransaction(metrics[ColNetSales], metrics[ColTransactionCount])

	signals := [6][]float64{
		MinMax(metrics[ColNetSales]),
		MinMax(avg),
		MinMax(metrics[ColBeverageCount]),
		invert(MinMax(metrics[ColServiceSeconds])),
		invert(MinMax(metrics[ColDiscountAmount])),
		invert(MinMax(abs(metrics[ColCashOverShort]))),
	}
	weights := w.ordered()

	composite := make([]float64, ds.Rows())
	for i := range composite {
		var total float64
		for k, sig := range signals {
			total += weights[k] * sig[i]
		}
		composite[i] = total
	}

	out := ds.Clone()
	if err := out.SetColumn(entities.NumericColumn(ColAvgTransaction, avg)); err != nil {
		return nil, err
	}
	if err := out.SetColumn(entities.NumericColumn(ColComposite, composite)); err != nil {
		return nil, err
	}
	return out, nil
}

// Floats returns the column as float64 values. Text cells that are not
// numbers become NaN.
func Floats(col entities.Column) []float64 {
	if col.Kind == entities.KindNumeric {
		return append([]float64(nil), col.Num...)
	}
	out := make([]float64, len(col.Text))
	for i, s := range col.Text {
		out[i] = entities.ParseNumber(s)
	}
	return out
}

// AvgTransaction divides sales by count. A zero, missing or non-finite
// count yields NaN for that row.
func AvgTransaction(sales, counts []float64) []float64 {
	out := make([]float64, len(sales))
	for i := range sales {
		c := math.NaN()
		if i < len(counts) {
			c = counts[i]
		}
		if c == 0 || math.IsNaN(c) || math.IsInf(c, 0) || math.IsNaN(sales[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = sales[i] / c
	}
	return out
}

// MinMax rescales values into [0,1] over the non-missing values. When all
// non-missing values are equal every non-missing row maps to 0. Missing
// values stay NaN.
func MinMax(values []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]float64, len(values))
	span := hi - lo
	// Halve first when the range overflows float64
	halved := math.IsInf(span, 0)
	if halved {
		span = hi/2 - lo/2
	}
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
		case lo == hi:
			out[i] = 0
		case halved:
			out[i] = (v/2 - lo/2) / span
		default:
			out[i] = (v - lo) / span
		}
	}
	return out
}

func invert(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = 1 - v
	}
	return out
}

func abs(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}

// Ranked is one row of a ranking.
type Ranked struct {
	Row   int
	Label string
	Score float64
}

// Rank orders rows by Composite Score, best first. Missing scores sort
// last; ties keep row order. n <= 0 returns every row.
func Rank(ds *entities.Dataset, labelColumn string, n int) ([]Ranked, error) {
	col, ok := ds.Column(ColComposite)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, ColComposite)
	}
	scores := Floats(col)

	var labels []string
	if labelColumn != "" {
		lc, ok := ds.Column(labelColumn)
		if !ok {
			return nil, fmt.Errorf("%w: %q", entities.ErrColumnNotFound, labelColumn)
		}
		labels = lc.Text
	}

	out := make([]Ranked, len(scores))
	for i, s := range scores {
		label := fmt.Sprintf("row %d", i+1)
		if labels != nil {
			label = labels[i]
		}
		out[i] = Ranked{Row: i, Label: label, Score: s}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Score, out[j].Score
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})

	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

// LabelColumn returns the first text column, which names the stores in
// the usual export. It returns "" when every column is numeric.
func LabelColumn(ds *entities.Dataset) string {
	for _, c := range ds.Columns {
		if c.Kind == entities.KindText {
			return c.Name
		}
	}
	return ""
}

// Leaderboard ranks ds, scoring it first when it has no composite column.
// An empty label picks LabelColumn.
func Leaderboard(ds *entities.Dataset, w Weights, label string, n int) ([]Ranked, error) {
	if _, ok := ds.Column(ColComposite); !ok {
		scored, err := Score(ds, w)
		if err != nil {
			return nil, err
		}
		ds = scored
	}
	if label == "" {
		label = LabelColumn(ds)
	}
	return Rank(ds, label, n)
}
