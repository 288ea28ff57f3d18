// Package config provides configuration parsing and validation for the
// UDP responder and requester.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultHost is the loopback address both components use when no host is given.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the well-known service port.
	DefaultPort = 3310

	// DefaultMaxRequestSize is the responder receive bound. It is kept
	// deliberately small so that truncation is easy to observe.
	DefaultMaxRequestSize Size = 16

	// DefaultMaxMessageSize is the requester send and receive bound.
	DefaultMaxMessageSize Size = 1024

	// DefaultTimeout is how long the requester waits for a reply.
	DefaultTimeout = 4 * time.Second

	// MaxDatagramSize is the largest UDP payload over IPv4.
	MaxDatagramSize Size = 65507

	// DefaultMetricsAddress is where the responder serves /metrics and /health.
	DefaultMetricsAddress = "127.0.0.1:9310"
)

// Config represents the complete configuration for both components.
// It is built once at startup and passed by value afterwards.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// ServerConfig configures the responder.
type ServerConfig struct {
	Endpoint `yaml:",inline"`

	// MaxRequestSize bounds inbound datagrams. Longer datagrams are truncated.
	MaxRequestSize Size `yaml:"max_request_size"`

	// DecodePolicy selects how undecodable bytes are shown: backslash or replacement.
	DecodePolicy string `yaml:"decode_policy"`

	// ReplyRate limits replies per second. 0 means unlimited.
	ReplyRate float64 `yaml:"reply_rate"`

	// ReplyBurst is the token bucket size used with ReplyRate.
	ReplyBurst int `yaml:"reply_burst"`

	Simulate SimulateConfig `yaml:"simulate"`
}

// ClientConfig configures the requester.
type ClientConfig struct {
	Endpoint `yaml:",inline"`

	// MaxMessageSize bounds both outbound requests and inbound replies.
	MaxMessageSize Size `yaml:"max_message_size"`

	// Timeout is the bounded wait for each reply.
	Timeout time.Duration `yaml:"timeout"`

	DecodePolicy string `yaml:"decode_policy"`
}

// SimulateConfig injects faults into the responder's outbound replies.
// Probabilities are in the range 0.0 to 1.0.
type SimulateConfig struct {
	Drop      float64       `yaml:"drop"`
	Duplicate float64       `yaml:"duplicate"`
	Delay     float64       `yaml:"delay"`
	DelayMin  time.Duration `yaml:"delay_min"`
	DelayMax  time.Duration `yaml:"delay_max"`
}

// Enabled reports whether any fault has a non-zero probability.
func (s SimulateConfig) Enabled() bool {
	return s.Drop > 0 || s.Duplicate > 0 || s.Delay > 0
}

// MetricsConfig configures the HTTP health and metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Endpoint:       Endpoint{Host: DefaultHost, Port: DefaultPort},
			MaxRequestSize: DefaultMaxRequestSize,
			DecodePolicy:   "backslash",
			ReplyBurst:     1,
		},
		Client: ClientConfig{
			Endpoint:       Endpoint{Host: DefaultHost, Port: DefaultPort},
			MaxMessageSize: DefaultMaxMessageSize,
			Timeout:        DefaultTimeout,
			DecodePolicy:   "backslash",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: DefaultMetricsAddress,
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from YAML bytes on top of the defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR} or $VAR patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces environment variable references with their values.
// ${VAR:-default} falls back to default when VAR is unset.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if idx := strings.Index(name, ":-"); idx != -1 {
			if val, ok := os.LookupEnv(name[:idx]); ok {
				return val
			}
			return name[idx+2:]
		}

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Validate checks the whole configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !isValidLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	if !isValidLogFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("invalid log.format: %s (must be text or json)", c.Log.Format))
	}

	errs = append(errs, prefixed("server", c.Server.problems())...)
	errs = append(errs, prefixed("client", c.Client.problems())...)

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			errs = append(errs, fmt.Sprintf("metrics.address: %v", err))
		}
	}

	return joinProblems(errs)
}

// Validate checks the responder settings.
func (s ServerConfig) Validate() error {
	return joinProblems(s.problems())
}

func (s ServerConfig) problems() []string {
	var errs []string

	if s.Host == "" {
		errs = append(errs, "host is required")
	}
	// Port 0 asks the kernel for an ephemeral port.
	if s.Port < 0 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port %d out of range 0-65535", s.Port))
	}
	if err := validateSize(s.MaxRequestSize); err != nil {
		errs = append(errs, "max_request_size "+err.Error())
	}
	if !isValidDecodePolicy(s.DecodePolicy) {
		errs = append(errs, fmt.Sprintf("decode_policy: invalid value %s (must be backslash or replacement)", s.DecodePolicy))
	}
	if s.ReplyRate < 0 {
		errs = append(errs, "reply_rate must not be negative")
	}
	if s.ReplyRate > 0 && s.ReplyBurst < 1 {
		errs = append(errs, "reply_burst must be at least 1 when reply_rate is set")
	}

	sim := s.Simulate
	for _, f := range []struct {
		name string
		p    float64
	}{{"drop", sim.Drop}, {"duplicate", sim.Duplicate}, {"delay", sim.Delay}} {
		if f.p < 0 || f.p > 1 {
			errs = append(errs, fmt.Sprintf("simulate.%s must be between 0 and 1", f.name))
		}
	}
	if sim.DelayMin < 0 || sim.DelayMax < sim.DelayMin {
		errs = append(errs, "simulate.delay_max must be >= simulate.delay_min >= 0")
	}

	return errs
}

// Validate checks the requester settings.
func (c ClientConfig) Validate() error {
	return joinProblems(c.problems())
}

func (c ClientConfig) problems() []string {
	var errs []string

	if c.Host == "" {
		errs = append(errs, "host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port %d out of range 1-65535", c.Port))
	}
	if err := validateSize(c.MaxMessageSize); err != nil {
		errs = append(errs, "max_message_size "+err.Error())
	}
	if c.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if !isValidDecodePolicy(c.DecodePolicy) {
		errs = append(errs, fmt.Sprintf("decode_policy: invalid value %s (must be backslash or replacement)", c.DecodePolicy))
	}

	return errs
}

func validateSize(s Size) error {
	if s < 1 || s > MaxDatagramSize {
		return fmt.Errorf("must be between 1 and %d bytes", int(MaxDatagramSize))
	}
	return nil
}

func prefixed(section string, problems []string) []string {
	out := make([]string, len(problems))
	for i, p := range problems {
		out[i] = section + "." + p
	}
	return out
}

func joinProblems(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	default:
		return false
	}
}

func isValidDecodePolicy(policy string) bool {
	switch policy {
	case "backslash", "replacement":
		return true
	default:
		return false
	}
}

// String returns the configuration as YAML.
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}
