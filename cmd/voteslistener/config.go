package main

import (
	"fmt"
	"log/slog"

	"github.com/voteslistener/core/confirmation"
	"github.com/voteslistener/core/forwarder"
	"github.com/voteslistener/core/listener"
	"github.com/voteslistener/core/processor"
)

// Config is the thin set of bootstrap constants this binary needs. It
// embeds each thread's own Config rather than flattening their fields,
// grouping settings by subsystem.
type Config struct {
	Listener     listener.Config
	Processor    processor.Config
	Forwarder    forwarder.Config
	Confirmation confirmation.Config

	// MetricsAddr is the listen address for the Prometheus /metrics HTTP
	// server. Empty disables it.
	MetricsAddr string
	// Verbosity is a geth-style 0-5 log level, converted to a slog.Level by
	// VerbosityToLogLevel.
	Verbosity int
	// LogFormat selects the retained formatter for non-JSON operators:
	// "json" (default), "text", or "color".
	LogFormat string
	// LogFile, if non-empty, rotates log output through lumberjack instead
	// of writing straight to stderr.
	LogFile string
}

// DefaultConfig returns a Config with every thread's own defaults plus a
// moderate verbosity, JSON logging to stderr, and Prometheus on :9090.
func DefaultConfig() Config {
	return Config{
		Listener:     listener.DefaultConfig(),
		Processor:    processor.DefaultConfig(),
		Forwarder:    forwarder.DefaultConfig(),
		Confirmation: confirmation.Config{},
		MetricsAddr:  ":9090",
		Verbosity:    3,
		LogFormat:    "json",
	}
}

// Validate delegates to each embedded Config's own Validate, so an invalid
// threshold or a zero-or-negative duration is caught before any thread
// starts.
func (c Config) Validate() error {
	if err := c.Listener.Validate(); err != nil {
		return err
	}
	if err := c.Processor.Validate(); err != nil {
		return err
	}
	if err := c.Forwarder.Validate(); err != nil {
		return err
	}
	if c.Verbosity < 0 || c.Verbosity > 5 {
		return fmt.Errorf("voteslistener: Verbosity must be in [0,5], got %d", c.Verbosity)
	}
	return nil
}

// VerbosityToLogLevel maps a geth-style 0 (silent) .. 5 (trace) scale onto
// slog's levels. slog has no silent or trace level, so 0 maps to a level
// above Error (nothing logs) and 5 collapses onto Debug.
func VerbosityToLogLevel(v int) slog.Level {
	switch v {
	case 0:
		return slog.LevelError + 4
	case 1:
		return slog.LevelError
	case 2:
		return slog.LevelWarn
	case 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
