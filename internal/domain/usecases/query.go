// Package usecases - query.go turns one user utterance into one rendered reply.
package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
)

// QueryUseCase answers an utterance directly when the engine can, and
// otherwise splits it into sub-questions answered one by one.
type QueryUseCase struct {
	observer       ports.TurnObserver
	logger         *zap.Logger
	maxConcurrency int
}

// NewQueryUseCase creates a QueryUseCase.
// maxConcurrency > 1 only takes effect for engines that report themselves reentrant.
func NewQueryUseCase(observer ports.TurnObserver, logger *zap.Logger, maxConcurrency int) *QueryUseCase {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &QueryUseCase{
		observer:       observer,
		logger:         logger.Named("query"),
		maxConcurrency: maxConcurrency,
	}
}

// outcome is the tagged result of one engine call.
type outcome struct {
	answer string
	err    error
}

func (o outcome) ok() bool { return o.err == nil }

// Handle returns the rendered response for utterance. It never fails:
// engine errors become inline error text.
func (uc *QueryUseCase) Handle(ctx context.Context, utterance string, engine ports.AnsweringEngine) string {
	text, _ := uc.handle(ctx, utterance, engine)
	return text
}

// Respond is Handle plus whether the turn fell back to decomposition.
func (uc *QueryUseCase) Respond(ctx context.Context, utterance string, engine ports.AnsweringEngine) *entities.ChatResponse {
	text, decomposed := uc.handle(ctx, utterance, engine)
	return &entities.ChatResponse{Text: text, Decomposed: decomposed}
}

func (uc *QueryUseCase) handle(ctx context.Context, utterance string, engine ports.AnsweringEngine) (string, bool) {
	start := time.Now()

	// 1. Whole utterance, verbatim
	first := uc.attempt(ctx, engine, utterance)
	if first.ok() {
		uc.observer.ObserveTurn(ports.PathDirect, 0, 0, time.Since(start))
		return first.answer, false
	}
	uc.logger.Debug("single-shot answer failed, decomposing", zap.Error(first.err))

	// 2. Split into sub-questions
	subs := Decompose(utterance)

	// 3. Answer each independently
	entries := uc.dispatch(ctx, engine, subs)

	failures := 0
	for _, e := range entries {
		if e.Failed() {
			failures++
		}
	}
	uc.observer.ObserveTurn(ports.PathDecomposed, len(entries), failures, time.Since(start))
	uc.logger.Info("answered decomposed utterance",
		zap.Int("subquestions", len(entries)),
		zap.Int("failures", failures),
		zap.Duration("elapsed", time.Since(start)),
	)

	// 4. Join in order
	return Render(entries), true
}

// dispatch answers every sub-question exactly once. Results land in the
// slot matching the sub-question's position.
func (uc *QueryUseCase) dispatch(ctx context.Context, engine ports.AnsweringEngine, subs []string) []entities.Entry {
	entries := make([]entities.Entry, len(subs))
	record := func(i int) {
		res := uc.attempt(ctx, engine, subs[i])
		entries[i] = entities.Entry{Question: subs[i], Answer: res.answer, Err: res.err}
	}

	if uc.maxConcurrency <= 1 || len(subs) < 2 || !isReentrant(engine) {
		for i := range subs {
			record(i)
		}
		return entries
	}

	var g errgroup.Group
	g.SetLimit(uc.maxConcurrency)
	for i := range subs {
		i := i
		g.Go(func() error {
			record(i)
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

// attempt calls the engine once, converting a panic into a failed outcome.
func (uc *QueryUseCase) attempt(ctx context.Context, engine ports.AnsweringEngine, question string) (res outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = outcome{err: fmt.Errorf("answering engine panicked: %v", r)}
		}
		uc.observer.ObserveEngineCall(time.Since(start), res.err)
	}()

	answer, err := engine.Answer(ctx, question)
	if err != nil {
		return outcome{err: err}
	}
	return outcome{answer: answer}
}

func isReentrant(engine ports.AnsweringEngine) bool {
	r, ok := engine.(ports.Reentrant)
	return ok && r.Reentrant()
}
