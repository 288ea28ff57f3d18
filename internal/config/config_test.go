package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 3310 {
		t.Errorf("Server.Port = %d, want 3310", cfg.Server.Port)
	}
	if cfg.Server.MaxRequestSize != 16 {
		t.Errorf("Server.MaxRequestSize = %d, want 16", cfg.Server.MaxRequestSize)
	}
	if cfg.Client.MaxMessageSize != 1024 {
		t.Errorf("Client.MaxMessageSize = %d, want 1024", cfg.Client.MaxMessageSize)
	}
	if cfg.Client.Timeout != 4*time.Second {
		t.Errorf("Client.Timeout = %v, want 4s", cfg.Client.Timeout)
	}
	if cfg.Client.DecodePolicy != "backslash" {
		t.Errorf("Client.DecodePolicy = %s, want backslash", cfg.Client.DecodePolicy)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestParse_ValidConfig(t *testing.T) {
	yamlConfig := `
log:
  level: debug
  format: json

server:
  host: 0.0.0.0
  port: 4000
  max_request_size: 1KiB
  decode_policy: replacement
  reply_rate: 50
  reply_burst: 10
  simulate:
    drop: 0.25
    delay: 0.5
    delay_min: 10ms
    delay_max: 50ms

client:
  host: 10.0.0.1
  port: 4000
  max_message_size: 512
  timeout: 1500ms

metrics:
  enabled: true
  address: "127.0.0.1:9999"
`

	cfg, err := Parse([]byte(yamlConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
	}
	if cfg.Server.Endpoint != (Endpoint{Host: "0.0.0.0", Port: 4000}) {
		t.Errorf("Server.Endpoint = %+v, want 0.0.0.0:4000", cfg.Server.Endpoint)
	}
	if cfg.Server.MaxRequestSize != 1024 {
		t.Errorf("Server.MaxRequestSize = %d, want 1024", cfg.Server.MaxRequestSize)
	}
	if cfg.Server.DecodePolicy != "replacement" {
		t.Errorf("Server.DecodePolicy = %s, want replacement", cfg.Server.DecodePolicy)
	}
	if cfg.Server.ReplyRate != 50 || cfg.Server.ReplyBurst != 10 {
		t.Errorf("Server reply rate = %v/%d, want 50/10", cfg.Server.ReplyRate, cfg.Server.ReplyBurst)
	}
	if !cfg.Server.Simulate.Enabled() {
		t.Error("Server.Simulate.Enabled() = false, want true")
	}
	if cfg.Server.Simulate.DelayMax != 50*time.Millisecond {
		t.Errorf("Simulate.DelayMax = %v, want 50ms", cfg.Server.Simulate.DelayMax)
	}
	if cfg.Client.Host != "10.0.0.1" {
		t.Errorf("Client.Host = %s, want 10.0.0.1", cfg.Client.Host)
	}
	if cfg.Client.MaxMessageSize != 512 {
		t.Errorf("Client.MaxMessageSize = %d, want 512", cfg.Client.MaxMessageSize)
	}
	if cfg.Client.Timeout != 1500*time.Millisecond {
		t.Errorf("Client.Timeout = %v, want 1.5s", cfg.Client.Timeout)
	}
	// Unset client fields keep their defaults.
	if cfg.Client.DecodePolicy != "backslash" {
		t.Errorf("Client.DecodePolicy = %s, want backslash", cfg.Client.DecodePolicy)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != "127.0.0.1:9999" {
		t.Errorf("Metrics = %+v, want enabled on 127.0.0.1:9999", cfg.Metrics)
	}
}

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  port: 5000\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %s, want %s", cfg.Server.Host, DefaultHost)
	}
	if cfg.Client.Port != DefaultPort {
		t.Errorf("Client.Port = %d, want %d", cfg.Client.Port, DefaultPort)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	if err == nil {
		t.Fatal("Parse() should fail for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("Error = %v, want to contain 'failed to parse config'", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantError string
	}{
		{
			name:      "invalid log level",
			yaml:      "log:\n  level: loud\n",
			wantError: "invalid log.level",
		},
		{
			name:      "invalid log format",
			yaml:      "log:\n  format: xml\n",
			wantError: "invalid log.format",
		},
		{
			name:      "empty server host",
			yaml:      "server:\n  host: \"\"\n",
			wantError: "server.host is required",
		},
		{
			name:      "server port out of range",
			yaml:      "server:\n  port: 70000\n",
			wantError: "server.port 70000 out of range",
		},
		{
			name:      "client port zero",
			yaml:      "client:\n  port: 0\n",
			wantError: "client.port 0 out of range",
		},
		{
			name:      "request size too large",
			yaml:      "server:\n  max_request_size: 64KiB\n",
			wantError: "exceeds the 65507 byte datagram limit",
		},
		{
			name:      "request size zero",
			yaml:      "server:\n  max_request_size: 0\n",
			wantError: "server.max_request_size must be between 1 and 65507 bytes",
		},
		{
			name:      "invalid size string",
			yaml:      "client:\n  max_message_size: lots\n",
			wantError: "invalid size format",
		},
		{
			name:      "unknown decode policy",
			yaml:      "client:\n  decode_policy: strict\n",
			wantError: "client.decode_policy: invalid value strict",
		},
		{
			name:      "non-positive timeout",
			yaml:      "client:\n  timeout: 0s\n",
			wantError: "client.timeout must be positive",
		},
		{
			name:      "negative reply rate",
			yaml:      "server:\n  reply_rate: -1\n",
			wantError: "reply_rate must not be negative",
		},
		{
			name:      "rate without burst",
			yaml:      "server:\n  reply_rate: 5\n  reply_burst: 0\n",
			wantError: "reply_burst must be at least 1",
		},
		{
			name:      "drop probability above one",
			yaml:      "server:\n  simulate:\n    drop: 1.5\n",
			wantError: "simulate.drop must be between 0 and 1",
		},
		{
			name:      "delay window inverted",
			yaml:      "server:\n  simulate:\n    delay_min: 2s\n    delay_max: 1s\n",
			wantError: "simulate.delay_max must be >= simulate.delay_min",
		},
		{
			name:      "metrics address without port",
			yaml:      "metrics:\n  enabled: true\n  address: localhost\n",
			wantError: "metrics.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantError) {
				t.Errorf("Error = %v, want to contain %q", err, tt.wantError)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = ""
	cfg.Client.Timeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"server.host is required", "client.timeout must be positive"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error = %v, want to contain %q", err, want)
		}
	}
}

func TestServerConfig_AllowsEphemeralPort(t *testing.T) {
	cfg := Default().Server
	cfg.Port = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for port 0", err)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("UDPECHO_TEST_HOST", "192.0.2.10")
	t.Setenv("UDPECHO_TEST_PORT", "4444")

	yamlConfig := `
client:
  host: "${UDPECHO_TEST_HOST}"
  port: $UDPECHO_TEST_PORT
`

	cfg, err := Parse([]byte(yamlConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Client.Host != "192.0.2.10" {
		t.Errorf("Client.Host = %s, want 192.0.2.10", cfg.Client.Host)
	}
	if cfg.Client.Port != 4444 {
		t.Errorf("Client.Port = %d, want 4444", cfg.Client.Port)
	}
}

func TestParse_EnvVarDefaultValue(t *testing.T) {
	os.Unsetenv("UDPECHO_NONEXISTENT")

	cfg, err := Parse([]byte("server:\n  host: \"${UDPECHO_NONEXISTENT:-0.0.0.0}\"\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
}

func TestParse_EnvVarNotFound(t *testing.T) {
	os.Unsetenv("UDPECHO_NONEXISTENT")

	cfg, err := Parse([]byte("server:\n  host: \"${UDPECHO_NONEXISTENT}\"\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Host != "${UDPECHO_NONEXISTENT}" {
		t.Errorf("Server.Host = %s, want the placeholder kept", cfg.Server.Host)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Load() should fail for nonexistent file")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "udpecho.yaml")
	if err := os.WriteFile(configPath, []byte("log:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}
}

func TestString_RoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Server.MaxRequestSize = 2048
	cfg.Client.Timeout = 250 * time.Millisecond

	parsed, err := Parse([]byte(cfg.String()))
	if err != nil {
		t.Fatalf("Parse(String()) error = %v\n%s", err, cfg.String())
	}

	if parsed.Server.MaxRequestSize != 2048 {
		t.Errorf("Server.MaxRequestSize = %d, want 2048", parsed.Server.MaxRequestSize)
	}
	if parsed.Client.Timeout != 250*time.Millisecond {
		t.Errorf("Client.Timeout = %v, want 250ms", parsed.Client.Timeout)
	}
	if !strings.Contains(cfg.String(), "max_request_size: 2.0 KiB") {
		t.Errorf("String() should render sizes with units, got:\n%s", cfg.String())
	}
}
