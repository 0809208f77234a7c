// Command voteslistener wires the cluster vote-listening and
// optimistic-confirmation core (the Listener, Processor, and
// Packet-Forwarder threads) into a supervised, runnable process and
// exposes its metrics over Prometheus.
//
// Usage:
//
//	voteslistener [flags]
//
// Flags:
//
//	--gossip-sleep-ms          Gossip poll sleep, in ms (default 10)
//	--verifier-batch-size      Max entries per signature-verification batch
//	--verifier-fallback        Verify individually on a failed combined check
//	--duplicate-threshold      DUPLICATE_THRESHOLD stake fraction (default 1/3)
//	--vote-threshold           VOTE_THRESHOLD stake fraction (default 2/3)
//	--root-progress-ms         default-ms-per-slot root-progress interval
//	--listen-confirm-budget-ms listen-and-confirm wait budget, in ms (default 200)
//	--min-wait-step-ms         minimum spurious-wakeup budget debit, in ms
//	--forward-throttle-ms      packet-forwarder tick interval, in ms (default 10)
//	--forward-horizon          leadership horizon gating packet buffering
//	--journal-path             optional Pebble path for the confirmation journal
//	--metrics-addr             Prometheus listen address (default :9090)
//	--verbosity                log level 0-5 (default 3)
//	--log-format               json, text, or color (default json)
//	--log-file                 rotating log file path (default stderr)
//	--version                  print version and exit
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/bus"
	"github.com/voteslistener/core/forwarder"
	"github.com/voteslistener/core/listener"
	"github.com/voteslistener/core/log"
	"github.com/voteslistener/core/metrics"
	"github.com/voteslistener/core/node"
	"github.com/voteslistener/core/processor"
	"github.com/voteslistener/core/tracker"
	"github.com/voteslistener/core/vote"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	level := VerbosityToLogLevel(cfg.Verbosity)
	logger := buildLogger(level, cfg.LogFormat, cfg.LogFile)
	log.SetDefault(logger)

	logger.Info("voteslistener starting", "version", version, "commit", commit)
	logger.Info("configuration",
		"gossip_sleep", cfg.Listener.GossipSleep,
		"duplicate_threshold", cfg.Processor.DuplicateThreshold,
		"vote_threshold", cfg.Processor.VoteThreshold,
		"root_progress_interval", cfg.Processor.RootProgressInterval,
		"forward_throttle", cfg.Forwarder.ForwardThrottle,
		"metrics_addr", cfg.MetricsAddr,
		"verbosity", cfg.Verbosity,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	// Construct the VoteTracker at bootstrap from the root bank and thread
	// it through all three pipeline stages as a shared handle -- never a
	// package-level global.
	root := newStaticRootBank(0, 432000)
	tr := tracker.NewVoteTracker()
	tr.AdvanceToRoot(root)

	gossipTxBus := bus.NewUnbounded[*vote.SignedVoteTransaction]()
	packetsBus := bus.NewUnbounded[vote.Packet]()

	proc, err := processor.New(
		cfg.Processor,
		tr,
		staticRootBankSource(root),
		noLedger{},
		processor.Buses{
			GossipTransactions: gossipTxBus,
			ReplayVotes:        bus.NewUnbounded[vote.ReplayVote](),
			VerifiedVote:       bus.NewUnbounded[vote.VerifiedVote](),
			GossipVoteHash:     bus.NewUnbounded[vote.GossipVoteHash](),
			DuplicateConfirmed: bus.NewUnbounded[[]vote.SlotHash](),
			BankNotification:   bus.NewUnbounded[vote.BankNotification](),
		},
		nil,
		cfg.Confirmation,
	)
	if err != nil {
		logger.Error("failed to construct processor", "error", err)
		return 1
	}

	lst := listener.New(cfg.Listener, noGossipSource{}, listener.Buses{
		GossipTransactions: gossipTxBus,
		VerifiedPackets:    packetsBus,
	})
	fwd := forwarder.New(cfg.Forwarder, func() bank.LeaderBank { return noLeaderBank{} }, packetsBus)

	lm := node.NewLifecycleManager(node.DefaultLifecycleConfig())
	// Listener starts first, then Processor, then Forwarder; StopAll
	// reverses this order.
	if err := lm.Register(lst, 10); err != nil {
		logger.Error("failed to register listener", "error", err)
		return 1
	}
	if err := lm.Register(proc, 20); err != nil {
		logger.Error("failed to register processor", "error", err)
		return 1
	}
	if err := lm.Register(fwd, 30); err != nil {
		logger.Error("failed to register forwarder", "error", err)
		return 1
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		exporter := metrics.NewPrometheusExporter(metrics.DefaultRegistry, metrics.DefaultPrometheusConfig())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: exporter.Handler()}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
	}

	if errs := lm.StartAll(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("failed to start service", "error", e)
		}
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	if errs := lm.StopAll(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("error during shutdown", "error", e)
		}
	}

	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return 0
}

// parseFlags parses CLI arguments into a Config. Returns the config, whether
// the caller should exit immediately, and the exit code.
func parseFlags(args []string) (Config, bool, int) {
	cfg := DefaultConfig()
	fs := newFlagSet(&cfg)

	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, true, 2
	}

	if *showVersion {
		fmt.Printf("voteslistener %s (commit %s)\n", version, commit)
		return cfg, true, 0
	}

	return cfg, false, 0
}

// buildLogger constructs the process-wide logger per Config.LogFormat and
// Config.LogFile:
// JSON goes through log.NewRotating (lumberjack-backed when LogFile is
// set), while "text"/"color" go through the retained formatter package via
// log.NewFormatted, sharing the same rotating writer.
func buildLogger(level slog.Level, format, logFile string) *log.Logger {
	if format != "text" && format != "color" {
		return log.NewRotating(level, logFile, 100, 5, 28)
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		w = &lumberjack.Logger{Filename: logFile, MaxSize: 100, MaxBackups: 5, MaxAge: 28, Compress: true}
	}
	return log.NewFormatted(level, format, w)
}
