package main

import (
	"flag"
	"fmt"
	"strconv"
	"time"
)

// flagSet wraps flag.FlagSet to add support for millisecond-duration flags,
// following the same custom-Value pattern stdlib flag uses for types it has
// no native setter for.
type flagSet struct {
	*flag.FlagSet
}

// newCustomFlagSet creates a flagSet with ContinueOnError behavior.
func newCustomFlagSet(name string) *flagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &flagSet{FlagSet: fs}
}

// DurationMsVar defines a flag expressed in milliseconds on the command
// line but stored as a time.Duration, since every thread Config in this
// module (listener.Config, processor.Config, forwarder.Config) already
// uses time.Duration fields.
func (fs *flagSet) DurationMsVar(p *time.Duration, name string, value time.Duration, usage string) {
	fs.FlagSet.Var(&durationMsValue{p: p}, name, usage)
	*p = value
}

// durationMsValue implements flag.Value for millisecond-granularity
// duration flags.
type durationMsValue struct {
	p *time.Duration
}

func (v *durationMsValue) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatInt(v.p.Milliseconds(), 10)
}

func (v *durationMsValue) Set(s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration-ms value %q", s)
	}
	*v.p = time.Duration(n) * time.Millisecond
	return nil
}

// newFlagSet creates a flag.FlagSet that binds every bootstrap constant to
// the given Config.
func newFlagSet(cfg *Config) *flagSet {
	fs := newCustomFlagSet("voteslistener")

	fs.DurationMsVar(&cfg.Listener.GossipSleep, "gossip-sleep-ms", cfg.Listener.GossipSleep, "gossip poll sleep, in ms")
	fs.IntVar(&cfg.Listener.Verifier.BatchSize, "verifier-batch-size", cfg.Listener.Verifier.BatchSize, "max entries per signature-verification batch")
	fs.BoolVar(&cfg.Listener.Verifier.EnableFallback, "verifier-fallback", cfg.Listener.Verifier.EnableFallback, "verify individually when a combined batch check fails")

	fs.Float64Var(&cfg.Processor.DuplicateThreshold, "duplicate-threshold", cfg.Processor.DuplicateThreshold, "DUPLICATE_THRESHOLD stake fraction")
	fs.Float64Var(&cfg.Processor.VoteThreshold, "vote-threshold", cfg.Processor.VoteThreshold, "VOTE_THRESHOLD stake fraction")
	fs.DurationMsVar(&cfg.Processor.RootProgressInterval, "root-progress-ms", cfg.Processor.RootProgressInterval, "default-ms-per-slot root-progress interval")
	fs.DurationMsVar(&cfg.Processor.ListenConfirmBudget, "listen-confirm-budget-ms", cfg.Processor.ListenConfirmBudget, "listen-and-confirm wait budget, in ms")
	fs.DurationMsVar(&cfg.Processor.MinWaitStep, "min-wait-step-ms", cfg.Processor.MinWaitStep, "minimum budget debited per spurious wakeup, in ms")

	fs.DurationMsVar(&cfg.Forwarder.ForwardThrottle, "forward-throttle-ms", cfg.Forwarder.ForwardThrottle, "packet-forwarder tick interval, in ms")
	fs.IntVar(&cfg.Forwarder.Horizon, "forward-horizon", cfg.Forwarder.Horizon, "leadership horizon (slots) gating packet buffering")

	fs.StringVar(&cfg.Confirmation.JournalPath, "journal-path", cfg.Confirmation.JournalPath, "optional Pebble path for the optimistic-confirmation journal")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus /metrics listen address (empty disables it)")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-5 (0=silent, 5=trace)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: json, text, or color")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "rotating log file path (empty logs to stderr)")

	return fs
}
