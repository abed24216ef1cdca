// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/scoring"
)

const defaultReloadDelay = 250 * time.Millisecond

// DatasetOptions configures how the dataset is prepared after loading.
type DatasetOptions struct {
	Score       bool
	Weights     scoring.Weights
	ReloadDelay time.Duration

	// OnReload is called after every reload attempt triggered by Watch.
	OnReload func(ds *entities.Dataset, err error)
}

// DatasetUseCase loads the dataset, scores it, and keeps the current
// snapshot. Snapshots are immutable once published.
type DatasetUseCase struct {
	loader  ports.DatasetLoader
	path    string
	opts    DatasetOptions
	logger  *zap.Logger
	current atomic.Pointer[entities.Dataset]
}

// NewDatasetUseCase creates a DatasetUseCase with injected dependencies.
func NewDatasetUseCase(loader ports.DatasetLoader, path string, opts DatasetOptions, logger *zap.Logger) *DatasetUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ReloadDelay <= 0 {
		opts.ReloadDelay = defaultReloadDelay
	}
	if opts.Weights == (scoring.Weights{}) {
		opts.Weights = scoring.DefaultWeights()
	}
	return &DatasetUseCase{
		loader: loader,
		path:   path,
		opts:   opts,
		logger: logger.Named("dataset"),
	}
}

// Load reads the source, optionally adds the composite score, and publishes
// the result as the current snapshot.
func (uc *DatasetUseCase) Load(ctx context.Context) (*entities.Dataset, error) {
	ds, err := uc.loader.Load(ctx, uc.path)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	scored := false
	if uc.opts.Score {
		out, err := scoring.Score(ds, uc.opts.Weights)
		switch {
		case errors.Is(err, scoring.ErrMissingColumn):
			uc.logger.Warn("composite score skipped", zap.Error(err))
		case err != nil:
			return nil, fmt.Errorf("scoring dataset: %w", err)
		default:
			ds, scored = out, true
		}
	}

	uc.current.Store(ds)
	uc.logger.Info("dataset loaded",
		zap.String("path", uc.path),
		zap.Int("rows", ds.Rows()),
		zap.Int("columns", len(ds.Columns)),
		zap.Bool("scored", scored),
	)
	return ds, nil
}

// Current returns the latest published snapshot, or nil before Load.
func (uc *DatasetUseCase) Current() *entities.Dataset {
	return uc.current.Load()
}

// Path returns the dataset source path.
func (uc *DatasetUseCase) Path() string {
	return uc.path
}

// Watch reloads the dataset whenever its file is created or written.
// A failed reload keeps the previous snapshot. Watch blocks until ctx is done.
func (uc *DatasetUseCase) Watch(ctx context.Context, watcher ports.FileWatcher) error {
	events, err := watcher.Watch(ctx, filepath.Dir(uc.path))
	if err != nil {
		return fmt.Errorf("watching dataset: %w", err)
	}

	target := filepath.Clean(uc.path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Path) != target || ev.Operation == ports.FileDeleted {
				continue
			}
			// Coalesce bursts of writes into one reload
			pending = time.After(uc.opts.ReloadDelay)
		case <-pending:
			pending = nil
			ds, err := uc.Load(ctx)
			if err != nil {
				uc.logger.Warn("dataset reload failed, keeping previous snapshot", zap.Error(err))
			}
			if uc.opts.OnReload != nil {
				uc.opts.OnReload(ds, err)
			}
		}
	}
}
