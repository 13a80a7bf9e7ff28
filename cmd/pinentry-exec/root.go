package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pinentry-exec/internal/config"
	"pinentry-exec/internal/dialog"
	"pinentry-exec/internal/logging"
	"pinentry-exec/internal/secmem"
	"pinentry-exec/internal/server"
	"pinentry-exec/internal/session"
)

// version is overridden at build time via -ldflags.
var version = "0.2.0"

var flags struct {
	configPath string
	command    string
	timeout    int
	display    string
	ttyName    string
	ttyType    string
	lcCtype    string
	lcMessages string
	noGrab     bool
	parentWID  string
	colors     string
	ttyAlert   string
	debug      bool
}

var rootCmd = &cobra.Command{
	Use:     "pinentry-exec",
	Short:   "Assuan pinentry backed by an external dialog command",
	Version: version,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "path to config file")
	f.StringVar(&flags.command, "command", "", "dialog command (overrides config)")
	f.IntVarP(&flags.timeout, "timeout", "o", config.DefaultTimeoutSec, "dialog timeout in seconds (0 disables)")
	f.StringVarP(&flags.display, "display", "D", "", "X display for the dialog")
	f.StringVarP(&flags.ttyName, "ttyname", "T", "", "tty device name")
	f.StringVarP(&flags.ttyType, "ttytype", "N", "", "tty terminal type")
	f.StringVarP(&flags.lcCtype, "lc-ctype", "C", "", "LC_CTYPE locale category")
	f.StringVarP(&flags.lcMessages, "lc-messages", "M", "", "LC_MESSAGES locale category")
	f.BoolVarP(&flags.noGrab, "no-global-grab", "g", false, "grab keyboard only while the window is focused")
	f.StringVarP(&flags.parentWID, "parent-wid", "W", "", "parent window ID")
	f.StringVarP(&flags.colors, "colors", "c", "", "custom dialog colors")
	f.StringVarP(&flags.ttyAlert, "ttyalert", "a", "", "alert mode (none, beep or flash)")
	f.BoolVar(&flags.debug, "debug", false, "enable debug logging")
}

func run(cmd *cobra.Command) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pinentry-exec: %v\n", err)
		return err
	}
	applyFlagOverrides(cmd, cfg)

	log, cleanup, err := logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pinentry-exec: %v\n", err)
		return err
	}
	defer cleanup()

	// A crash must not write passphrase bytes to a core file.
	if err := secmem.DisableCoreDumps(); err != nil {
		log.Warn("cannot disable core dumps", "error", err)
	}

	inv, err := buildInvoker(cfg)
	if err != nil {
		log.Error("invalid dialog command", "error", err)
		return err
	}

	sess := session.New(log, inv,
		session.Info{Flavor: "exec", Version: version},
		cfg.Timeout(), cfg.SessionOptions())

	ctx, stop := signal.NotifyContext(cmd.Context(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(os.Stdin, os.Stdout, sess, log)
	if err := srv.Run(ctx); err != nil {
		log.Error("session failed", "error", err)
		return err
	}
	return nil
}

// applyFlagOverrides puts explicitly-set flags on top of file and
// environment configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("command") {
		cfg.Command = strings.Fields(flags.command)
	}
	if set("timeout") {
		cfg.TimeoutSec = flags.timeout
	}
	if set("display") {
		cfg.Display = flags.display
	}
	if set("ttyname") {
		cfg.TTYName = flags.ttyName
	}
	if set("ttytype") {
		cfg.TTYType = flags.ttyType
	}
	if set("lc-ctype") {
		cfg.LCCtype = flags.lcCtype
	}
	if set("lc-messages") {
		cfg.LCMessages = flags.lcMessages
	}
	if set("no-global-grab") {
		cfg.NoGlobalGrab = flags.noGrab
	}
	if set("parent-wid") {
		cfg.ParentWID = flags.parentWID
	}
	if set("colors") {
		cfg.Colors = flags.colors
	}
	if set("ttyalert") {
		cfg.TTYAlert = flags.ttyAlert
	}
	if flags.debug {
		cfg.Logging.Level = "debug"
	}
}

// buildInvoker picks the dialog backend: the configured command, or the
// built-in terminal prompt when none is configured.
func buildInvoker(cfg *config.Config) (dialog.Invoker, error) {
	if len(cfg.Command) == 0 {
		return &dialog.TTYInvoker{TTYName: cfg.TTYName}, nil
	}
	return dialog.NewExecInvoker(cfg.Command, nil)
}
