package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/config"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/health"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/logging"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/metrics"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/responder"
)

func serverCmd(g *globalFlags) *cobra.Command {
	maxSize := config.DefaultMaxRequestSize
	var (
		decodePolicy   string
		metricsAddress string
		replyRate      float64
	)

	cmd := &cobra.Command{
		Use:   "server [host [port]]",
		Short: "Answer UDP requests",
		Long: `Bind host:port (default 127.0.0.1 3310) and answer every datagram
with "ACK " followed by the request text. Requests longer than
--max-size are truncated. Runs until interrupted.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("max-size") {
				cfg.Server.MaxRequestSize = maxSize
			}
			if flags.Changed("decode-policy") {
				cfg.Server.DecodePolicy = decodePolicy
			}
			if flags.Changed("reply-rate") {
				cfg.Server.ReplyRate = replyRate
			}
			if flags.Changed("metrics-address") {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Address = metricsAddress
			}

			if cfg.Server.Endpoint, err = cfg.Server.Endpoint.WithArgs(args); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().Var(&maxSize, "max-size", "Receive bound per request (e.g. 16B, 1KiB)")
	cmd.Flags().StringVar(&decodePolicy, "decode-policy", "backslash", "Undecodable bytes: backslash or replacement")
	cmd.Flags().Float64Var(&replyRate, "reply-rate", 0, "Maximum replies per second (0 = unlimited)")
	cmd.Flags().StringVar(&metricsAddress, "metrics-address", config.DefaultMetricsAddress, "Serve /health and /metrics on this address")

	return cmd
}

func runServer(parent context.Context, cfg *config.Config) error {
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

	r, err := responder.New(cfg.Server,
		responder.WithLogger(logger),
		responder.WithMetrics(metrics.Default()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		hcfg := health.DefaultServerConfig()
		hcfg.Address = cfg.Metrics.Address
		hcfg.Logger = logger

		hs := health.NewServer(hcfg, r)
		if err := hs.Start(); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		defer hs.Stop()
	}

	err = r.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
