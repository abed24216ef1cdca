// Store Insights: natural-language Q&A over restaurant performance data.
//
// Usage:
//
//	storeinsights serve                 # HTTP chat UI and JSON API
//	storeinsights mcp                   # MCP server (stdio transport)
//	storeinsights ask "question"        # one-shot answer on stdout
//	storeinsights score --limit 10      # composite score ranking
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dataset    string
	provider   string
	model      string
	baseURL    string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "storeinsights",
		Short:         "Ask questions about restaurant performance data",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	opts.bind(cmd.PersistentFlags())

	cmd.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newAskCmd(opts),
		newScoreCmd(opts),
	)
	return cmd
}

func (opts *rootOptions) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&opts.dataset, "dataset", "d", "", "dataset CSV path (overrides DATASET_PATH)")
	flags.StringVar(&opts.provider, "provider", "", "LLM provider: openai or ollama")
	flags.StringVar(&opts.model, "model", "", "LLM model name")
	flags.StringVar(&opts.baseURL, "base-url", "", "LLM endpoint base URL")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: console or json")
}
