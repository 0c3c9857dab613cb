package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and LOCALBRIDGE_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → LOCALBRIDGE_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("localbridge")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/localbridge/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/localbridge", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("LOCALBRIDGE")
	v.SetEnvKeyReplacer(envKeys)
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
	cmd.Flags().String("log-file", "", "also write JSON logs to this file")
	cmd.Flags().Duration("log-rotate", logging.DefaultRotateEvery, "start a new log file this often")
	cmd.Flags().Int("log-keep", logging.DefaultKeepFiles, "rotated log files to keep")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addClientFlags adds the flags every command that talks to a backend needs.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("url", "http://localhost:5000", "LocalBridge server URL")
	f.Duration("timeout", 0, "per-request timeout (0 = none)")
	f.String("role", "", "device role: pc|mobile (default: saved role, else detected)")
	f.String("state-file", "", "where the chosen role is remembered (default: user config dir)")
	f.String("user-agent", defaultUserAgent(), "user agent used for role detection")
	f.Int("viewport-width", 0, "screen width in pixels used for role detection (0 = unknown)")
	f.Bool("single-role", false, "use the shared /api/clipboard endpoint and skip notes polling")
}

// setupLogging reads logging flags from viper and configures slog. Commands
// that print results for scripts default to warnings only.
func setupLogging(v *viper.Viper, quiet bool) (io.Closer, error) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	levelStr := v.GetString("log-level")

	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		switch {
		case quiet:
			level = slog.LevelWarn
		case interactive:
			level = slog.LevelDebug
		default:
			level = slog.LevelInfo
		}
	}
	return logging.Setup(logging.Options{
		Format:      logging.ParseFormat(v.GetString("log-format")),
		Level:       level,
		File:        v.GetString("log-file"),
		RotateEvery: v.GetDuration("log-rotate"),
		KeepFiles:   v.GetInt("log-keep"),
	})
}
