// Package wizard provides the interactive `udpecho init` setup wizard.
package wizard

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/config"
)

// Result contains the wizard output.
type Result struct {
	Config     *config.Config
	ConfigPath string
}

// Wizard manages the interactive setup process.
type Wizard struct {
	theme *huh.Theme
	out   io.Writer
}

// New creates a new setup wizard.
func New() *Wizard {
	return &Wizard{
		theme: huh.ThemeDracula(),
		out:   os.Stdout,
	}
}

// answers holds the raw form values. Numeric fields stay strings until
// buildConfig so the forms can bind to them directly.
type answers struct {
	ConfigPath string

	ServerHost     string
	ServerPort     string
	MaxRequestSize string

	ClientHost     string
	ClientPort     string
	MaxMessageSize string
	Timeout        string

	DecodePolicy string
	LogLevel     string

	MetricsEnabled bool
	MetricsAddress string
}

func defaultAnswers() answers {
	def := config.Default()
	return answers{
		ConfigPath:     "./udpecho.yaml",
		ServerHost:     def.Server.Host,
		ServerPort:     strconv.Itoa(def.Server.Port),
		MaxRequestSize: def.Server.MaxRequestSize.String(),
		ClientHost:     def.Client.Host,
		ClientPort:     strconv.Itoa(def.Client.Port),
		MaxMessageSize: def.Client.MaxMessageSize.String(),
		Timeout:        def.Client.Timeout.String(),
		DecodePolicy:   def.Server.DecodePolicy,
		LogLevel:       def.Log.Level,
		MetricsAddress: def.Metrics.Address,
	}
}

// Run executes the interactive setup wizard.
func (w *Wizard) Run() (*Result, error) {
	w.printBanner()

	a := defaultAnswers()

	if err := w.askBasicSetup(&a); err != nil {
		return nil, err
	}
	if err := w.askServer(&a); err != nil {
		return nil, err
	}
	if err := w.askClient(&a); err != nil {
		return nil, err
	}
	if err := w.askAdvancedOptions(&a); err != nil {
		return nil, err
	}

	cfg, err := buildConfig(a)
	if err != nil {
		return nil, err
	}

	if err := writeConfig(cfg, a.ConfigPath); err != nil {
		return nil, err
	}

	w.printSummary(a.ConfigPath, cfg)

	return &Result{Config: cfg, ConfigPath: a.ConfigPath}, nil
}

func (w *Wizard) printBanner() {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Render(`
            _                  _
  _   _  __| |_ __   ___  ___| |__   ___
 | | | |/ _` + "`" + ` | '_ \ / _ \/ __| '_ \ / _ \
 | |_| | (_| | |_) |  __/ (__| | | | (_) |
  \__,_|\__,_| .__/ \___|\___|_| |_|\___/
             |_|
`)

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("  UDP request/reply exchange - Setup Wizard\n")

	fmt.Fprintln(w.out, banner)
	fmt.Fprintln(w.out, subtitle)
}

func (w *Wizard) askBasicSetup(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Basic Setup").
				Description("Where to write the generated configuration."),

			huh.NewInput().
				Title("Config File Path").
				Placeholder("./udpecho.yaml").
				Value(&a.ConfigPath).
				Validate(validateConfigPath),
		),
	).WithTheme(w.theme)

	return form.Run()
}

func (w *Wizard) askServer(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Server").
				Description("The address `udpecho server` binds and answers on."),

			huh.NewInput().
				Title("Bind Host").
				Placeholder(config.DefaultHost).
				Value(&a.ServerHost).
				Validate(validateHost),

			huh.NewInput().
				Title("Bind Port").
				Description("0 picks a free port").
				Placeholder(strconv.Itoa(config.DefaultPort)).
				Value(&a.ServerPort).
				Validate(func(s string) error { return validatePort(s, 0) }),

			huh.NewInput().
				Title("Max Request Size").
				Description("Longer requests are truncated on arrival (e.g. 16B, 1KiB)").
				Value(&a.MaxRequestSize).
				Validate(validateSize),
		),
	).WithTheme(w.theme)

	return form.Run()
}

func (w *Wizard) askClient(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Client").
				Description("The server address `udpecho client` sends to."),

			huh.NewInput().
				Title("Server Host").
				Placeholder(config.DefaultHost).
				Value(&a.ClientHost).
				Validate(validateHost),

			huh.NewInput().
				Title("Server Port").
				Placeholder(strconv.Itoa(config.DefaultPort)).
				Value(&a.ClientPort).
				Validate(func(s string) error { return validatePort(s, 1) }),

			huh.NewInput().
				Title("Max Message Size").
				Description("Send and receive bound (e.g. 1KiB)").
				Value(&a.MaxMessageSize).
				Validate(validateSize),

			huh.NewInput().
				Title("Reply Timeout").
				Description("How long to wait for each reply (e.g. 4s)").
				Value(&a.Timeout).
				Validate(validateTimeout),
		),
	).WithTheme(w.theme)

	return form.Run()
}

func (w *Wizard) askAdvancedOptions(a *answers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Advanced Options"),

			huh.NewSelect[string]().
				Title("Undecodable Bytes").
				Description("How bytes that are not valid UTF-8 are shown").
				Options(
					huh.NewOption(`Escape as \xNN (Recommended)`, "backslash"),
					huh.NewOption("Replace with U+FFFD", "replacement"),
				).
				Value(&a.DecodePolicy),

			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info (Recommended)", "info"),
					huh.NewOption("Warning", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&a.LogLevel),

			huh.NewConfirm().
				Title("Enable health and metrics endpoint?").
				Description("Serves /health, /ready and /metrics next to the server").
				Value(&a.MetricsEnabled),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return err
	}

	if !a.MetricsEnabled {
		return nil
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Metrics Address").
				Placeholder(config.DefaultMetricsAddress).
				Value(&a.MetricsAddress).
				Validate(validateAddress),
		),
	).WithTheme(w.theme).Run()
}

func validateConfigPath(s string) error {
	if s == "" {
		return fmt.Errorf("config path is required")
	}
	if !strings.HasSuffix(s, ".yaml") && !strings.HasSuffix(s, ".yml") {
		return fmt.Errorf("config file should have .yaml or .yml extension")
	}
	return nil
}

func validateHost(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validatePort(s string, min int) error {
	port, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if port < min || port > 65535 {
		return fmt.Errorf("port must be between %d and 65535", min)
	}
	return nil
}

func validateSize(s string) error {
	_, err := config.ParseSize(s)
	return err
}

func validateTimeout(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration (use e.g. 4s or 500ms)")
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func validateAddress(s string) error {
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	return nil
}

// buildConfig turns form answers into a validated config.
func buildConfig(a answers) (*config.Config, error) {
	cfg := config.Default()

	var err error
	cfg.Server.Host = strings.TrimSpace(a.ServerHost)
	if cfg.Server.Port, err = strconv.Atoi(a.ServerPort); err != nil {
		return nil, fmt.Errorf("invalid server port %q", a.ServerPort)
	}
	if cfg.Server.MaxRequestSize, err = config.ParseSize(a.MaxRequestSize); err != nil {
		return nil, fmt.Errorf("invalid max request size: %w", err)
	}

	cfg.Client.Host = strings.TrimSpace(a.ClientHost)
	if cfg.Client.Port, err = strconv.Atoi(a.ClientPort); err != nil {
		return nil, fmt.Errorf("invalid client port %q", a.ClientPort)
	}
	if cfg.Client.MaxMessageSize, err = config.ParseSize(a.MaxMessageSize); err != nil {
		return nil, fmt.Errorf("invalid max message size: %w", err)
	}
	if cfg.Client.Timeout, err = time.ParseDuration(a.Timeout); err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}

	cfg.Server.DecodePolicy = a.DecodePolicy
	cfg.Client.DecodePolicy = a.DecodePolicy
	cfg.Log.Level = a.LogLevel

	cfg.Metrics.Enabled = a.MetricsEnabled
	if a.MetricsEnabled {
		cfg.Metrics.Address = a.MetricsAddress
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# udpecho configuration
# Generated by setup wizard

`
	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (w *Wizard) printSummary(configPath string, cfg *config.Config) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("─────────────────────────────────────────────────")

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, divider)
	fmt.Fprintln(w.out, style.Render("✓ Setup Complete!"))
	fmt.Fprintln(w.out, divider)
	fmt.Fprintln(w.out)

	fmt.Fprintf(w.out, "  Config file:  %s\n", configPath)
	fmt.Fprintf(w.out, "  Server:       %s (requests up to %s)\n", cfg.Server.Endpoint, cfg.Server.MaxRequestSize)
	fmt.Fprintf(w.out, "  Client:       %s (timeout %s)\n", cfg.Client.Endpoint, cfg.Client.Timeout)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(w.out, "  Health:       http://%s/health\n", cfg.Metrics.Address)
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "  To start:")
	fmt.Fprintf(w.out, "    udpecho server -c %s\n", configPath)
	fmt.Fprintf(w.out, "    udpecho client -c %s\n", configPath)
	fmt.Fprintln(w.out)
}
