package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/loadtest"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/logging"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/metrics"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/requester"
)

func benchCmd(g *globalFlags) *cobra.Command {
	var (
		cf          clientFlags
		concurrency int
		requests    int
		duration    time.Duration
		message     string
	)

	cmd := &cobra.Command{
		Use:   "bench [host [port]]",
		Short: "Measure reply rate and loss against a server",
		Long: `Run concurrent clients against host:port (default 127.0.0.1 3310).
Each client keeps one request outstanding at a time. Prints the reply
rate, timeouts and round-trip times.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			cf.apply(cmd, &cfg.Client)

			if cfg.Client.Endpoint, err = cfg.Client.Endpoint.WithArgs(args); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
			m := metrics.Default()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gen := loadtest.NewExchangeLoadGenerator(concurrency, requests, duration, message)
			result, err := gen.Run(ctx, func(ctx context.Context) (loadtest.Exchanger, error) {
				return requester.Dial(ctx, cfg.Client,
					requester.WithLogger(logger),
					requester.WithMetrics(m))
			})
			if err != nil {
				return err
			}

			result.Report(cmd.OutOrStdout())
			return nil
		},
	}

	cf.register(cmd)
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Number of concurrent clients")
	cmd.Flags().IntVarP(&requests, "requests", "n", 100, "Requests per client (0 = until --duration)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 = no limit)")
	cmd.Flags().StringVarP(&message, "message", "m", "ping", "Request text")

	return cmd
}
