package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// panelOptions mirrors the shape of the CLI Options struct.
type panelOptions struct {
	Config string `help:"Config file path"`

	Backend      string   `toml:"periph.backend" env:"PERIPH_BACKEND"`
	ActiveLow    bool     `toml:"control.active_low" env:"CONTROL_ACTIVE_LOW"`
	PeriodMs     int      `toml:"indicator.period_ms" env:"INDICATOR_PERIOD_MS"`
	PWMPeriodNs  int64    `toml:"periph.pwm_period_ns" env:"PERIPH_PWM_PERIOD_NS"`
	Channels     []string `toml:"indicator.channels" env:"INDICATOR_CHANNELS"`
	LoggingLevel string   `toml:"logging.level" env:"LOGGING_LEVEL"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panelnode.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeFile(t, `
[periph]
backend = "sysfs"
pwm_period_ns = 125000

[control]
active_low = true

[indicator]
period_ms = 250
channels = ["red", "green"]

[logging]
level = "debug"
`)

	opts := &panelOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := &panelOptions{
		Config:       path,
		Backend:      "sysfs",
		ActiveLow:    true,
		PeriodMs:     250,
		PWMPeriodNs:  125000,
		Channels:     []string{"red", "green"},
		LoggingLevel: "debug",
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("LoadConfig() = %+v, want %+v", opts, want)
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	path := writeFile(t, `
[periph]
backend = "sysfs"

[indicator]
period_ms = 250
`)

	t.Setenv(EnvPrefix+"PERIPH_BACKEND", "sim")
	t.Setenv(EnvPrefix+"INDICATOR_CHANNELS", "red, blue")
	t.Setenv(EnvPrefix+"CONTROL_ACTIVE_LOW", "not-a-bool")

	opts := &panelOptions{Config: path, ActiveLow: true}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Backend != "sim" {
		t.Errorf("Backend = %q, want env override sim", opts.Backend)
	}
	if opts.PeriodMs != 250 {
		t.Errorf("PeriodMs = %d, want 250 from TOML", opts.PeriodMs)
	}
	if !reflect.DeepEqual(opts.Channels, []string{"red", "blue"}) {
		t.Errorf("Channels = %v", opts.Channels)
	}
	if !opts.ActiveLow {
		t.Error("unparseable env value should leave the field alone")
	}
}

func TestLoadConfigKeepsChangedFlags(t *testing.T) {
	path := writeFile(t, `
[periph]
backend = "sysfs"

[logging]
level = "debug"
`)
	t.Setenv(EnvPrefix+"LOGGING_LEVEL", "error")

	var backend, level string
	cmd := &cobra.Command{Use: "panelnode"}
	cmd.Flags().StringVar(&backend, "backend", "auto", "")
	cmd.Flags().StringVar(&level, "logging-level", "info", "")
	if err := cmd.Flags().Set("backend", "noop"); err != nil {
		t.Fatal(err)
	}

	opts := &panelOptions{Config: path, Backend: "noop", LoggingLevel: "info"}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Backend != "noop" {
		t.Errorf("Backend = %q, flag set on the command line must win", opts.Backend)
	}
	if opts.LoggingLevel != "error" {
		t.Errorf("LoggingLevel = %q, want env value for an unchanged flag", opts.LoggingLevel)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &panelOptions{Config: filepath.Join(t.TempDir(), "nope.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &panelOptions{Config: writeFile(t, "[periph\nbackend = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should fail on invalid TOML")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":              "port",
		"LoggingLevel":      "logging-level",
		"ActiveLow":         "active-low",
		"PeriphPWM":         "periph-pwm",
		"PeriphPWMPeriodNs": "periph-pwm-period-ns",
		"KernelTickMs":      "kernel-tick-ms",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"periph": map[string]any{
			"sysfs":   map[string]any{"root": "/sys"},
			"backend": "sim",
		},
		"config": "panelnode.toml",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"config", "panelnode.toml"},
		{"periph.backend", "sim"},
		{"periph.sysfs.root", "/sys"},
		{"nonexistent", nil},
		{"periph.nonexistent", nil},
		{"config.deeper", nil},
	}

	for _, test := range tests {
		if result := getNestedValue(data, test.path); result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeFile(t, `
[logging]
level = "warn"
format = "json"
buffer_size = 200
kernel = "debug"

[logging.modules]
api = "error"
`)

	cfg, err := LoadLoggingConfig(path)
	if err != nil {
		t.Fatalf("LoadLoggingConfig failed: %v", err)
	}
	if cfg.Level != "warn" || cfg.Format != "json" || cfg.BufferSize != 200 {
		t.Errorf("cfg = %+v", cfg)
	}
	want := map[string]string{"kernel": "debug", "api": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	cfg, err = LoadLoggingConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil || cfg.Level != "info" {
		t.Errorf("missing file: cfg = %+v, err = %v", cfg, err)
	}

	if _, err := LoadLoggingConfig(writeFile(t, "[logging\n")); err == nil {
		t.Error("invalid TOML should be reported")
	}
}
