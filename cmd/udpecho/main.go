// Package main provides the CLI entry point for udpecho.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/config"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/sysinfo"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/wizard"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "udpecho",
		Short: "udpecho - UDP request/reply server and client",
		Long: `udpecho exchanges text over UDP. The server answers every datagram
it receives with "ACK " followed by the request. The client sends one
datagram per line of input and prints each reply, or TIME OUT when none
arrives in time.`,
		Version:       sysinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(serverCmd(g))
	rootCmd.AddCommand(clientCmd(g))
	rootCmd.AddCommand(sendCmd(g))
	rootCmd.AddCommand(benchCmd(g))
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// loadConfig builds the configuration: defaults, then the config file,
// then any global flag the user set explicitly.
func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}

	return cfg, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := wizard.New().Run(); err != nil {
				return fmt.Errorf("setup failed: %w", err)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := sysinfo.Collect()
			fmt.Fprintf(cmd.OutOrStdout(), "udpecho %s (%s, %s/%s)\n",
				info.Version, info.GoVersion, info.OS, info.Arch)
		},
	}
}
