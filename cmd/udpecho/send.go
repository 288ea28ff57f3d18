package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/logging"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/metrics"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/requester"
)

func sendCmd(g *globalFlags) *cobra.Command {
	var (
		cf   clientFlags
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send the given messages and print the replies",
		Long: `Send each argument as one request, in order, and print each reply or
TIME OUT. Exits non-zero if any request timed out.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			cf.apply(cmd, &cfg.Client)
			if cmd.Flags().Changed("host") {
				cfg.Client.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Client.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
			session, err := requester.Dial(cmd.Context(), cfg.Client,
				requester.WithLogger(logger),
				requester.WithMetrics(metrics.Default()))
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			var timedOut int
			for _, msg := range args {
				outcome, err := session.Exchange(cmd.Context(), msg)
				if err != nil {
					return err
				}
				if outcome.Kind == requester.TimedOut {
					timedOut++
				}
				fmt.Fprintln(out, outcome)
			}

			if timedOut > 0 {
				return fmt.Errorf("%d of %d requests timed out", timedOut, len(args))
			}
			return nil
		},
	}

	cf.register(cmd)
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Server host")
	cmd.Flags().IntVarP(&port, "port", "p", 3310, "Server port")

	return cmd
}
