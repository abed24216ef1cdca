// Package analyst provides the SQL-backed answering engine.
// Clean Architecture: Adapter implementing ports.AnsweringEngine and ports.EngineFactory.
//
// The model writes one SELECT against the session's private copy of the
// dataset; SQLite computes the result, which is rendered as a Markdown table.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/storeinsights-go/internal/adapters/tabledb"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/scoring"
)

// ErrStepLimit is returned when the model fails to produce a working query
// within the configured number of steps.
var ErrStepLimit = errors.New("step limit reached")

var sqlBlock = regexp.MustCompile("(?is)```sql\\s*(.*?)```")

// Options tunes an Engine.
type Options struct {
	MaxSteps   int // model calls per question
	RowLimit   int // rows rendered per answer
	SampleRows int // rows shown to the model in the system prompt
}

func (o Options) withDefaults() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = 4
	}
	if o.RowLimit <= 0 {
		o.RowLimit = 50
	}
	if o.SampleRows <= 0 {
		o.SampleRows = 3
	}
	return o
}

// Engine answers questions about one dataset snapshot. It is not reentrant.
type Engine struct {
	llm    ports.LLMService
	table  *tabledb.Table
	system string
	opts   Options
	logger *zap.Logger
}

// NewEngine loads ds into a private table and prepares the system prompt.
func NewEngine(ctx context.Context, llm ports.LLMService, ds *entities.Dataset, opts Options, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	table, err := tabledb.Open(ctx, ds)
	if err != nil {
		return nil, err
	}

	sample, err := table.Sample(ctx, opts.SampleRows)
	if err != nil {
		table.Close()
		return nil, fmt.Errorf("sampling rows: %w", err)
	}
	_, scored := ds.Column(scoring.ColComposite)

	return &Engine{
		llm:    llm,
		table:  table,
		system: systemPrompt(table.Schema(), sample, scored),
		opts:   opts,
		logger: logger.Named("analyst"),
	}, nil
}

// Answer asks the model for a query, runs it and renders the result.
// Failed queries are fed back to the model until MaxSteps is reached.
func (e *Engine) Answer(ctx context.Context, question string) (string, error) {
	prompt := questionPrompt(question)

	var lastErr error
	for step := 1; step <= e.opts.MaxSteps; step++ {
		start := time.Now()
		reply, err := e.llm.Generate(ctx, e.system, prompt)
		if err != nil {
			return "", fmt.Errorf("asking model: %w", err)
		}

		prose, query, ok := extractSQL(reply)
		if !ok {
			if prose == "" {
				return "", errors.New("model returned an empty answer")
			}
			return prose, nil
		}

		res, err := e.table.Query(ctx, query, e.opts.RowLimit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			e.logger.Debug("query failed",
				zap.Int("step", step),
				zap.String("sql", query),
				zap.Error(err),
			)
			lastErr = err
			prompt = retryPrompt(question, query, err)
			continue
		}

		e.logger.Debug("query answered",
			zap.Int("step", step),
			zap.Int("rows", len(res.Rows)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return compose(prose, res), nil
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrStepLimit, e.opts.MaxSteps, lastErr)
}

// Reentrant reports false: one question at a time per engine.
func (e *Engine) Reentrant() bool {
	return false
}

// Close releases the engine's table.
func (e *Engine) Close() error {
	return e.table.Close()
}

// extractSQL splits a reply into prose and the first fenced sql block.
func extractSQL(reply string) (prose, query string, ok bool) {
	m := sqlBlock.FindStringSubmatchIndex(reply)
	if m == nil {
		return strings.TrimSpace(reply), "", false
	}
	query = strings.TrimSpace(reply[m[2]:m[3]])
	prose = strings.TrimSpace(reply[:m[0]] + reply[m[1]:])
	return prose, query, query != ""
}

func compose(prose string, res *tabledb.Result) string {
	table := MarkdownTable(res)
	if prose == "" {
		return table
	}
	return prose + "\n\n" + table
}

// Factory creates one Engine per session.
type Factory struct {
	llm    ports.LLMService
	opts   Options
	logger *zap.Logger
}

// NewFactory creates an engine factory sharing one LLM backend.
func NewFactory(llm ports.LLMService, opts Options, logger *zap.Logger) *Factory {
	return &Factory{llm: llm, opts: opts, logger: logger}
}

// NewEngine implements ports.EngineFactory.
func (f *Factory) NewEngine(ctx context.Context, ds *entities.Dataset) (ports.AnsweringEngine, error) {
	return NewEngine(ctx, f.llm, ds, f.opts, f.logger)
}
