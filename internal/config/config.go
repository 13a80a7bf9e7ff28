// Package config handles configuration loading and validation for
// pinentry-exec.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is everything the process is told before the conversation
// starts: the dialog command, the default timeout, and the display/tty
// identifiers the agent did not yet send as OPTIONs. The core treats
// these as already-validated inputs.
type Config struct {
	// Command is the dialog command and its fixed arguments. Empty
	// means the built-in terminal prompt is used instead.
	Command []string `toml:"command" json:"command" yaml:"command"`

	// TimeoutSec bounds every dialog until SETTIMEOUT overrides it.
	// Zero disables the watchdog.
	TimeoutSec int `toml:"timeout_sec" json:"timeout_sec" yaml:"timeout_sec"`

	// Display is the X display forwarded to the dialog command.
	Display string `toml:"display" json:"display" yaml:"display"`

	// TTYName and TTYType identify the controlling terminal.
	TTYName string `toml:"ttyname" json:"ttyname" yaml:"ttyname"`
	TTYType string `toml:"ttytype" json:"ttytype" yaml:"ttytype"`

	// LCCtype and LCMessages are the locale categories forwarded to
	// the dialog command.
	LCCtype    string `toml:"lc_ctype" json:"lc_ctype" yaml:"lc_ctype"`
	LCMessages string `toml:"lc_messages" json:"lc_messages" yaml:"lc_messages"`

	// NoGlobalGrab relaxes keyboard grabbing; forwarded opaquely.
	NoGlobalGrab bool `toml:"no_global_grab" json:"no_global_grab" yaml:"no_global_grab"`

	// ParentWID, Colors and TTYAlert are presentation hints some
	// dialog programs honor; forwarded opaquely.
	ParentWID string `toml:"parent_wid" json:"parent_wid" yaml:"parent_wid"`
	Colors    string `toml:"colors" json:"colors" yaml:"colors"`
	TTYAlert  string `toml:"ttyalert" json:"ttyalert" yaml:"ttyalert"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// LoggingConfig holds log output configuration. stdout is never a valid
// sink: it carries the protocol.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// File is an optional log file path; empty logs to stderr.
	File string `toml:"file" json:"file" yaml:"file"`
}

// DefaultTimeoutSec matches the conventional pinentry dialog timeout.
const DefaultTimeoutSec = 300

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		TimeoutSec: DefaultTimeoutSec,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.config/pinentry-exec/config.toml (respecting XDG_CONFIG_HOME).
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "pinentry-exec", "config.toml")
}

// Timeout returns the default dialog timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Validate checks the configuration for values the rest of the process
// assumes are sane.
func (c *Config) Validate() error {
	if c.TimeoutSec < 0 {
		return fmt.Errorf("timeout_sec must be >= 0, got %d", c.TimeoutSec)
	}
	if len(c.Command) > 0 && strings.TrimSpace(c.Command[0]) == "" {
		return fmt.Errorf("command[0] must not be blank")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// ApplyEnvOverrides applies environment variables on top of the loaded
// configuration. The process-specific variables win over file values;
// DISPLAY and GPG_TTY fill gaps only.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PINENTRY_EXEC_COMMAND"); v != "" {
		c.Command = strings.Fields(v)
	}
	if v := os.Getenv("PINENTRY_EXEC_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			c.TimeoutSec = secs
		}
	}
	if v := os.Getenv("PINENTRY_EXEC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PINENTRY_EXEC_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	if c.Display == "" {
		c.Display = os.Getenv("DISPLAY")
	}
	if c.TTYName == "" {
		c.TTYName = os.Getenv("GPG_TTY")
	}
}

// SessionOptions returns the configuration fields that pre-populate the
// protocol option table, so a dialog shown before the agent sends its
// OPTION batch still knows its terminal and display.
func (c *Config) SessionOptions() map[string]string {
	opts := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			opts[k] = v
		}
	}
	set("display", c.Display)
	set("ttyname", c.TTYName)
	set("ttytype", c.TTYType)
	set("lc-ctype", c.LCCtype)
	set("lc-messages", c.LCMessages)
	set("parent-wid", c.ParentWID)
	set("colors", c.Colors)
	set("ttyalert", c.TTYAlert)
	if c.NoGlobalGrab {
		opts["no-grab"] = ""
	}
	return opts
}
