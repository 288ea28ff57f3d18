package wizard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/config"
)

func TestNew(t *testing.T) {
	w := New()
	if w == nil {
		t.Fatal("New() returned nil")
	}
	if w.theme == nil {
		t.Error("New() returned wizard without a theme")
	}
}

func TestDefaultAnswers_BuildDefaultConfig(t *testing.T) {
	cfg, err := buildConfig(defaultAnswers())
	if err != nil {
		t.Fatalf("buildConfig(defaults) error = %v", err)
	}

	def := config.Default()
	if cfg.Server.Endpoint != def.Server.Endpoint {
		t.Errorf("Server.Endpoint = %v, want %v", cfg.Server.Endpoint, def.Server.Endpoint)
	}
	if cfg.Server.MaxRequestSize != def.Server.MaxRequestSize {
		t.Errorf("MaxRequestSize = %v, want %v", cfg.Server.MaxRequestSize, def.Server.MaxRequestSize)
	}
	if cfg.Client.MaxMessageSize != def.Client.MaxMessageSize {
		t.Errorf("MaxMessageSize = %v, want %v", cfg.Client.MaxMessageSize, def.Client.MaxMessageSize)
	}
	if cfg.Client.Timeout != def.Client.Timeout {
		t.Errorf("Timeout = %v, want %v", cfg.Client.Timeout, def.Client.Timeout)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
}

func TestBuildConfig(t *testing.T) {
	a := defaultAnswers()
	a.ServerHost = "0.0.0.0"
	a.ServerPort = "4000"
	a.MaxRequestSize = "64B"
	a.ClientHost = "10.0.0.5"
	a.ClientPort = "4000"
	a.MaxMessageSize = "2KiB"
	a.Timeout = "1500ms"
	a.DecodePolicy = "replacement"
	a.LogLevel = "debug"
	a.MetricsEnabled = true
	a.MetricsAddress = "127.0.0.1:9999"

	cfg, err := buildConfig(a)
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}

	if got := cfg.Server.Endpoint.String(); got != "0.0.0.0:4000" {
		t.Errorf("Server.Endpoint = %s, want 0.0.0.0:4000", got)
	}
	if cfg.Server.MaxRequestSize != 64 {
		t.Errorf("MaxRequestSize = %d, want 64", cfg.Server.MaxRequestSize)
	}
	if got := cfg.Client.Endpoint.String(); got != "10.0.0.5:4000" {
		t.Errorf("Client.Endpoint = %s, want 10.0.0.5:4000", got)
	}
	if cfg.Client.MaxMessageSize != 2048 {
		t.Errorf("MaxMessageSize = %d, want 2048", cfg.Client.MaxMessageSize)
	}
	if cfg.Client.Timeout != 1500*time.Millisecond {
		t.Errorf("Timeout = %v, want 1.5s", cfg.Client.Timeout)
	}
	if cfg.Server.DecodePolicy != "replacement" || cfg.Client.DecodePolicy != "replacement" {
		t.Errorf("DecodePolicy = %q/%q, want replacement", cfg.Server.DecodePolicy, cfg.Client.DecodePolicy)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != "127.0.0.1:9999" {
		t.Errorf("Metrics = %+v, want enabled on 127.0.0.1:9999", cfg.Metrics)
	}
}

func TestBuildConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*answers)
	}{
		{"bad server port", func(a *answers) { a.ServerPort = "http" }},
		{"client port zero", func(a *answers) { a.ClientPort = "0" }},
		{"bad size", func(a *answers) { a.MaxRequestSize = "lots" }},
		{"oversized message", func(a *answers) { a.MaxMessageSize = "1MiB" }},
		{"bad timeout", func(a *answers) { a.Timeout = "soon" }},
		{"empty host", func(a *answers) { a.ClientHost = "  " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := defaultAnswers()
			tt.mutate(&a)
			if _, err := buildConfig(a); err == nil {
				t.Error("buildConfig() error = nil, want error")
			}
		})
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		input   string
		wantErr bool
	}{
		{"config path yaml", validateConfigPath, "./udpecho.yaml", false},
		{"config path yml", validateConfigPath, "/etc/udpecho.yml", false},
		{"config path empty", validateConfigPath, "", true},
		{"config path json", validateConfigPath, "config.json", true},
		{"host", validateHost, "localhost", false},
		{"host blank", validateHost, " ", true},
		{"client port", func(s string) error { return validatePort(s, 1) }, "3310", false},
		{"client port zero", func(s string) error { return validatePort(s, 1) }, "0", true},
		{"server port zero", func(s string) error { return validatePort(s, 0) }, "0", false},
		{"port too big", func(s string) error { return validatePort(s, 0) }, "65536", true},
		{"port text", func(s string) error { return validatePort(s, 0) }, "abc", true},
		{"size", validateSize, "16B", false},
		{"size plain", validateSize, "1024", false},
		{"size bad", validateSize, "big", true},
		{"timeout", validateTimeout, "4s", false},
		{"timeout zero", validateTimeout, "0s", true},
		{"timeout bad", validateTimeout, "4", true},
		{"address", validateAddress, "127.0.0.1:9310", false},
		{"address no port", validateAddress, "127.0.0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestWriteConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "udpecho.yaml")

	cfg := config.Default()
	cfg.Server.Port = 4000
	cfg.Client.Timeout = 2 * time.Second

	if err := writeConfig(cfg, path); err != nil {
		t.Fatalf("writeConfig() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# udpecho configuration") {
		t.Errorf("config missing header:\n%s", data)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if loaded.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", loaded.Server.Port)
	}
	if loaded.Client.Timeout != 2*time.Second {
		t.Errorf("Client.Timeout = %v, want 2s", loaded.Client.Timeout)
	}
	if loaded.Server.MaxRequestSize != cfg.Server.MaxRequestSize {
		t.Errorf("MaxRequestSize = %v, want %v", loaded.Server.MaxRequestSize, cfg.Server.MaxRequestSize)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	w := &Wizard{out: &buf}

	cfg := config.Default()
	cfg.Metrics.Enabled = true

	w.printSummary("./udpecho.yaml", cfg)

	out := buf.String()
	for _, want := range []string{
		"Setup Complete",
		"./udpecho.yaml",
		"127.0.0.1:3310",
		"http://127.0.0.1:9310/health",
		"udpecho server -c ./udpecho.yaml",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
