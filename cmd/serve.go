package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/inboxdigest/internal/logging"
	"github.com/nhle/inboxdigest/internal/server"
)

// warmUpTimeout bounds the initial mailbox connection attempt.
const warmUpTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr         string
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the digest over HTTP",
		Long: `Start the HTTP server.

Endpoints:
  GET  /mails          fetch and analyze the newest messages (JSON)
  GET  /mails?format=text  same, with the analysis rendered as labelled text
  POST /ask            answer the form or query parameter "question"
  GET  /runs           recent fetch runs (limit, offset, folder, outcome)
  GET  /status         state of the fetch pipeline
  GET  /healthz        liveness
  GET  /readyz         readiness
  GET  /metrics        Prometheus metrics

With --poll-interval the server also runs a fetch cycle in the background
at that interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a, err := newApp(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			health := server.NewHealthChecker()
			go func() {
				warmCtx, cancel := context.WithTimeout(ctx, warmUpTimeout)
				defer cancel()
				if _, err := a.connector.EnsureConnected(warmCtx); err != nil {
					a.logger.Warn("initial mailbox connection failed; will retry on first fetch",
						logging.Err(err))
				}
				health.SetReady(true)
			}()

			if pollInterval > 0 {
				go a.syncer.Poll(ctx, pollInterval)
			}

			srv := server.New(server.Config{
				Addr:       cfg.Server.Addr,
				Locale:     cfg.AI.Locale,
				Fetcher:    a.syncer,
				Questioner: a.asker,
				Runs:       a.store,
				Gatherer:   a.registry,
				Health:     health,
				Logger:     a.logger,
			})
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "run a background fetch cycle at this interval (0 = off)")

	return cmd
}
