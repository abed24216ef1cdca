// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/scoring"
)

// Environment variables read by Load.
const (
	EnvAPIKey       = "STOREINSIGHTS_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvDatasetPath  = "DATASET_PATH"
	EnvProvider     = "STOREINSIGHTS_LLM_PROVIDER"
	EnvModel        = "STOREINSIGHTS_LLM_MODEL"
	EnvBaseURL      = "STOREINSIGHTS_LLM_BASE_URL"
	EnvAddr         = "STOREINSIGHTS_ADDR"
	EnvLogLevel     = "STOREINSIGHTS_LOG_LEVEL"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config is the full service configuration.
type Config struct {
	APIKey      string        `yaml:"api_key"`
	DatasetPath string        `yaml:"dataset_path"`
	Watch       bool          `yaml:"watch"`
	LLM         LLMConfig     `yaml:"llm"`
	Engine      EngineConfig  `yaml:"engine"`
	Scoring     ScoringConfig `yaml:"scoring"`
	Server      ServerConfig  `yaml:"server"`
	Log         LogConfig     `yaml:"log"`
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai or ollama
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// EngineConfig tunes the answering engine and the orchestrator.
type EngineConfig struct {
	MaxSteps       int `yaml:"max_steps"`
	RowLimit       int `yaml:"row_limit"`
	SampleRows     int `yaml:"sample_rows"`
	MaxConcurrency int `yaml:"max_concurrency"`
}

// ScoringConfig controls the composite score column.
type ScoringConfig struct {
	Enabled bool            `yaml:"enabled"`
	Weights scoring.Weights `yaml:"weights"`
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		DatasetPath: "./data/store-summary-data.csv",
		Watch:       true,
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			Model:    "gpt-4o",
		},
		Engine: EngineConfig{
			MaxSteps:       4,
			RowLimit:       50,
			SampleRows:     3,
			MaxConcurrency: 1,
		},
		Scoring: ScoringConfig{
			Enabled: true,
			Weights: scoring.DefaultWeights(),
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds a Config from defaults, the YAML file at path (if non-empty)
// and the process environment, in that order.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv(lookup)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	set(&c.APIKey, EnvAPIKey, EnvOpenAIAPIKey)
	set(&c.DatasetPath, EnvDatasetPath)
	set(&c.LLM.Provider, EnvProvider)
	set(&c.LLM.Model, EnvModel)
	set(&c.LLM.BaseURL, EnvBaseURL)
	set(&c.Server.Addr, EnvAddr)
	set(&c.Log.Level, EnvLogLevel)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.DatasetPath) == "" {
		add("dataset_path is required")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.APIKey == "" {
			add("api_key is required for provider %q (set %s)", ProviderOpenAI, EnvOpenAIAPIKey)
		}
	case ProviderOllama:
	default:
		add("llm.provider must be %q or %q, got %q", ProviderOpenAI, ProviderOllama, c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		add("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}

	if c.Engine.MaxSteps < 1 {
		add("engine.max_steps must be at least 1")
	}
	if c.Engine.RowLimit < 1 {
		add("engine.row_limit must be at least 1")
	}
	if c.Engine.MaxConcurrency < 1 {
		add("engine.max_concurrency must be at least 1")
	}

	if c.Scoring.Enabled {
		if err := c.Scoring.Weights.Validate(); err != nil {
			add("scoring.weights: %v", err)
		}
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		add("log.format must be json or console, got %q", c.Log.Format)
	}

	return result.ErrorOrNil()
}

// Problems returns the individual validation errors, or nil.
func Problems(err error) []error {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.Errors
	}
	if err != nil {
		return []error{err}
	}
	return nil
}

// String renders the config as YAML with the API key masked.
func (c *Config) String() string {
	masked := *c
	if masked.APIKey != "" {
		masked.APIKey = "****"
	}
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return err.Error()
	}
	return string(out)
}
