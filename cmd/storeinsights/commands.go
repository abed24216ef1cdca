package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/storeinsights-go/internal/adapters/markdown"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/scoring"
	httpserver "github.com/0xcro3dile/storeinsights-go/internal/infrastructure/http"
	"github.com/0xcro3dile/storeinsights-go/internal/infrastructure/mcpserver"
	"github.com/0xcro3dile/storeinsights-go/internal/infrastructure/metrics"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cmd, opts, true)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			a.watch(ctx)

			srv := httpserver.NewServer(a.sessions, a.datasets, metrics.Handler(), a.cfg.Server.Addr, a.logger)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides STOREINSIGHTS_ADDR)")
	return cmd
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cmd, opts, true)
			if err != nil {
				return err
			}
			defer a.logger.Sync()
			a.watch(ctx)

			return mcpserver.New(a.sessions, a.datasets, a.cfg.Scoring.Weights, a.logger).ServeStdio()
		},
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one message and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cmd, opts, true)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			session, err := a.sessions.Start(ctx)
			if err != nil {
				return err
			}
			defer a.sessions.End(session.ID)

			resp, err := a.sessions.Ask(ctx, &entities.ChatRequest{
				SessionID: session.ID,
				Utterance: strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var (
		limit int
		label string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Print restaurants ranked by composite score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ranked, err := scoring.Leaderboard(a.datasets.Current(), a.cfg.Scoring.Weights, label, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), markdown.Ranking(ranked))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "rows to print, 0 for all")
	cmd.Flags().StringVar(&label, "label", "", "column naming each restaurant (default: first text column)")
	return cmd
}
