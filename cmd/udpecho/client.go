package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/config"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/console"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/logging"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/metrics"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/recovery"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/requester"
)

// clientFlags are shared by the client and send commands.
type clientFlags struct {
	timeout      time.Duration
	maxSize      config.Size
	decodePolicy string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	f.maxSize = config.DefaultMaxMessageSize
	cmd.Flags().DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "How long to wait for each reply")
	cmd.Flags().Var(&f.maxSize, "max-size", "Send and receive bound (e.g. 1KiB)")
	cmd.Flags().StringVar(&f.decodePolicy, "decode-policy", "backslash", "Undecodable bytes: backslash or replacement")
}

func (f *clientFlags) apply(cmd *cobra.Command, cfg *config.ClientConfig) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if flags.Changed("max-size") {
		cfg.MaxMessageSize = f.maxSize
	}
	if flags.Changed("decode-policy") {
		cfg.DecodePolicy = f.decodePolicy
	}
}

func clientCmd(g *globalFlags) *cobra.Command {
	var (
		cf    clientFlags
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "client [host [port]]",
		Short: "Send each line of input as a request",
		Long: `Send every line read from standard input as one datagram to host:port
(default 127.0.0.1 3310) and print the reply, or TIME OUT if none
arrives within --timeout. Stops at end of input.`,
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

			in, out := cmd.InOrStdin(), cmd.OutOrStdout()
			printer := console.New(out, console.Options{
				Quiet:       quiet,
				Interactive: console.IsTerminal(in),
				Color:       console.IsTerminal(out),
			})

			return runClient(cmd.Context(), cfg, in, printer)
		},
	}

	cf.register(cmd)
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print replies and timeouts after each request")

	return cmd
}

func runClient(parent context.Context, cfg *config.Config, input io.Reader, printer *console.Printer) error {
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := requester.Dial(ctx, cfg.Client,
		requester.WithLogger(logger),
		requester.WithMetrics(metrics.Default()))
	if err != nil {
		return err
	}
	printer.Connected(session.RemoteAddr())

	// Reading stdin cannot be interrupted, so the run goes in its own
	// goroutine and a signal abandons it.
	done := make(chan error, 1)
	go func() {
		defer recovery.RecoverWithCallback(logger, "requester", func(r any) {
			done <- fmt.Errorf("requester panic: %v", r)
		})
		done <- session.Run(ctx, input, printer)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	session.Close()
	printer.Closed()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	printer.Done()
	return nil
}
