package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/0xcro3dile/storeinsights-go/internal/adapters/analyst"
	"github.com/0xcro3dile/storeinsights-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/storeinsights-go/internal/adapters/llm"
	"github.com/0xcro3dile/storeinsights-go/internal/adapters/loader"
	"github.com/0xcro3dile/storeinsights-go/internal/adapters/sessionstore"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/usecases"
	"github.com/0xcro3dile/storeinsights-go/internal/infrastructure/config"
	"github.com/0xcro3dile/storeinsights-go/internal/infrastructure/logging"
	"github.com/0xcro3dile/storeinsights-go/internal/infrastructure/metrics"
)

// app is the composition root: concrete adapters injected into use cases.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	loader   *loader.MultiLoader
	datasets *usecases.DatasetUseCase
	sessions *usecases.SessionUseCase
}

// loadConfig applies file, environment and then changed flags.
func loadConfig(flags *pflag.FlagSet, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("dataset", &cfg.DatasetPath, opts.dataset)
	override("provider", &cfg.LLM.Provider, opts.provider)
	override("model", &cfg.LLM.Model, opts.model)
	override("base-url", &cfg.LLM.BaseURL, opts.baseURL)
	override("log-level", &cfg.Log.Level, opts.logLevel)
	override("log-format", &cfg.Log.Format, opts.logFormat)
	return cfg, nil
}

// newApp loads config, builds the logger and loads the dataset. A load
// failure is fatal. withEngine also validates the LLM settings and wires
// the session use case.
func newApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions, withEngine bool) (*app, error) {
	cfg, err := loadConfig(cmd.Flags(), opts)
	if err != nil {
		return nil, err
	}
	if withEngine {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, loader: loader.NewMultiLoader()}
	a.datasets = usecases.NewDatasetUseCase(a.loader, cfg.DatasetPath, usecases.DatasetOptions{
		Score:   cfg.Scoring.Enabled,
		Weights: cfg.Scoring.Weights,
		OnReload: func(ds *entities.Dataset, err error) {
			metrics.ObserveReload(ds.Rows(), err)
		},
	}, logger)

	ds, err := a.datasets.Load(ctx)
	metrics.ObserveReload(ds.Rows(), err)
	if err != nil {
		return nil, err
	}

	if withEngine {
		model, err := newLLM(cfg)
		if err != nil {
			return nil, err
		}
		factory := analyst.NewFactory(model, analyst.Options{
			MaxSteps:   cfg.Engine.MaxSteps,
			RowLimit:   cfg.Engine.RowLimit,
			SampleRows: cfg.Engine.SampleRows,
		}, logger)
		query := usecases.NewQueryUseCase(metrics.NewObserver(), logger, cfg.Engine.MaxConcurrency)
		store := sessionstore.NewInMemoryStore(metrics.SetActiveSessions)
		a.sessions = usecases.NewSessionUseCase(a.datasets, factory, store, query, logger)
	}

	return a, nil
}

// watch reloads the dataset on change until ctx is done.
func (a *app) watch(ctx context.Context) {
	if !a.cfg.Watch {
		return
	}
	watcher, err := filewatcher.NewFSNotifyWatcher(a.loader.SupportedExtensions(), a.logger)
	if err != nil {
		a.logger.Warn("dataset watch disabled", zap.Error(err))
		return
	}
	go func() {
		defer watcher.Stop()
		if err := a.datasets.Watch(ctx, watcher); err != nil {
			a.logger.Warn("dataset watch stopped", zap.Error(err))
		}
	}()
}

func newLLM(cfg *config.Config) (ports.LLMService, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOllama:
		return llm.NewOllamaLLMAdapter(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature), nil
	case config.ProviderOpenAI:
		return llm.NewOpenAIAdapter(cfg.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
