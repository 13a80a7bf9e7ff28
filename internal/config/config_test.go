package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PINENTRY_EXEC_COMMAND", "PINENTRY_EXEC_TIMEOUT",
		"PINENTRY_EXEC_LOG_LEVEL", "PINENTRY_EXEC_LOG_FILE",
		"DISPLAY", "GPG_TTY",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TimeoutSec != DefaultTimeoutSec {
		t.Errorf("TimeoutSec = %d, want %d", cfg.TimeoutSec, DefaultTimeoutSec)
	}
	if len(cfg.Command) != 0 {
		t.Errorf("Command should default to empty, got %v", cfg.Command)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestTimeout(t *testing.T) {
	cfg := &Config{TimeoutSec: 42}
	if cfg.Timeout() != 42*time.Second {
		t.Errorf("Timeout() = %v", cfg.Timeout())
	}
	cfg.TimeoutSec = 0
	if cfg.Timeout() != 0 {
		t.Errorf("zero timeout should stay zero, got %v", cfg.Timeout())
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"negative timeout", func(c *Config) { c.TimeoutSec = -1 }, true},
		{"blank command", func(c *Config) { c.Command = []string{" "} }, true},
		{"valid command", func(c *Config) { c.Command = []string{"zenity", "--entry"} }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"empty logging fields", func(c *Config) { c.Logging = LoggingConfig{} }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("PINENTRY_EXEC_COMMAND", "zenity --entry")
	t.Setenv("PINENTRY_EXEC_TIMEOUT", "15")
	t.Setenv("PINENTRY_EXEC_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if len(cfg.Command) != 2 || cfg.Command[0] != "zenity" || cfg.Command[1] != "--entry" {
		t.Errorf("Command = %v", cfg.Command)
	}
	if cfg.TimeoutSec != 15 {
		t.Errorf("TimeoutSec = %d", cfg.TimeoutSec)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestApplyEnvOverridesFillsGapsOnly(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("DISPLAY", ":9")
	t.Setenv("GPG_TTY", "/dev/pts/3")

	cfg := DefaultConfig()
	cfg.Display = ":0"
	cfg.ApplyEnvOverrides()

	if cfg.Display != ":0" {
		t.Errorf("DISPLAY must not override a configured display, got %q", cfg.Display)
	}
	if cfg.TTYName != "/dev/pts/3" {
		t.Errorf("GPG_TTY should fill the empty ttyname, got %q", cfg.TTYName)
	}
}

func TestApplyEnvOverridesIgnoresBadTimeout(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("PINENTRY_EXEC_TIMEOUT", "soon")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	if cfg.TimeoutSec != DefaultTimeoutSec {
		t.Errorf("TimeoutSec = %d", cfg.TimeoutSec)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnvOverrides(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TimeoutSec != DefaultTimeoutSec {
		t.Errorf("TimeoutSec = %d", cfg.TimeoutSec)
	}
}

func TestLoadTOML(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
command = ["zenity", "--entry"]
timeout_sec = 30
ttyname = "/dev/pts/7"

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Command) != 2 || cfg.Command[0] != "zenity" {
		t.Errorf("Command = %v", cfg.Command)
	}
	if cfg.TimeoutSec != 30 {
		t.Errorf("TimeoutSec = %d", cfg.TimeoutSec)
	}
	if cfg.TTYName != "/dev/pts/7" {
		t.Errorf("TTYName = %q", cfg.TTYName)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadJSON(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"command": ["kdialog", "--password", "hi"], "timeout_sec": 10}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Command) != 3 || cfg.Command[0] != "kdialog" {
		t.Errorf("Command = %v", cfg.Command)
	}
	if cfg.TimeoutSec != 10 {
		t.Errorf("TimeoutSec = %d", cfg.TimeoutSec)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "timeout_sec: 20\nlogging:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TimeoutSec != 20 {
		t.Errorf("TimeoutSec = %d", cfg.TimeoutSec)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadInvalidConfigFails(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("timeout_sec = -5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for negative timeout")
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Display = ":0"
	cfg.TTYName = "/dev/pts/5"
	cfg.NoGlobalGrab = true

	opts := cfg.SessionOptions()
	if opts["display"] != ":0" {
		t.Errorf("display = %q", opts["display"])
	}
	if opts["ttyname"] != "/dev/pts/5" {
		t.Errorf("ttyname = %q", opts["ttyname"])
	}
	if _, ok := opts["no-grab"]; !ok {
		t.Error("no-grab should be present")
	}
	if _, ok := opts["colors"]; ok {
		t.Error("unset fields must not appear")
	}
}
