// Package processor implements the processor thread: the cooperative loop
// that merges the gossip and replay vote streams, folds them into the vote
// tracker, and emits optimistic-confirmation threshold events.
package processor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/bus"
	"github.com/voteslistener/core/confirmation"
	"github.com/voteslistener/core/log"
	"github.com/voteslistener/core/metrics"
	"github.com/voteslistener/core/tracker"
	"github.com/voteslistener/core/vote"
)

// RPCNotifier is an optional callback fired once per Vote that carried new
// information, regardless of origin, for RPC subscription delivery. A nil
// RPCNotifier is a no-op.
type RPCNotifier interface {
	NotifyVote(v vote.Vote)
}

// RootBankSource returns the current root bank snapshot.
type RootBankSource func() bank.RootBank

// Buses bundles every channel the Processor thread reads from and writes
// to.
type Buses struct {
	GossipTransactions *bus.Unbounded[*vote.SignedVoteTransaction]
	ReplayVotes        *bus.Unbounded[vote.ReplayVote]

	VerifiedVote       *bus.Unbounded[vote.VerifiedVote]
	GossipVoteHash     *bus.Unbounded[vote.GossipVoteHash]
	DuplicateConfirmed *bus.Unbounded[[]vote.SlotHash]
	BankNotification   *bus.Unbounded[vote.BankNotification]
}

// Processor is the vote-processing thread. One Processor owns one
// optimistic-confirmation verifier and one root-progress timer; both are
// thread-local state, never shared with the Listener or Forwarder threads.
type Processor struct {
	cfg    Config
	tr     *tracker.VoteTracker
	root   RootBankSource
	ledger bank.Ledger
	buses  Buses
	notify RPCNotifier
	log    *log.Logger

	confirm *confirmation.Verifier

	// pendingOptimistic is thread-local scratch used only within a single
	// filterAndConfirm call to carry VOTE_THRESHOLD crossings from
	// processOneVote to onNewVote. The Processor loop is single-goroutine
	// owned, so no synchronization is needed around it.
	pendingOptimistic []vote.SlotHash

	exit    atomic.Bool
	done    chan struct{}
	started sync.Once
}

// New constructs a Processor. confirmCfg seeds the optimistic-confirmation
// verifier; notify may be nil.
func New(cfg Config, tr *tracker.VoteTracker, root RootBankSource, ledger bank.Ledger, buses Buses, notify RPCNotifier, confirmCfg confirmation.Config) (*Processor, error) {
	confirmVerifier, err := confirmation.New(confirmCfg, root().Slot())
	if err != nil {
		return nil, err
	}
	return &Processor{
		cfg:     cfg,
		tr:      tr,
		root:    root,
		ledger:  ledger,
		buses:   buses,
		notify:  notify,
		log:     log.Default().Module("processor"),
		confirm: confirmVerifier,
		done:    make(chan struct{}),
	}, nil
}

// Name implements node.Service.
func (p *Processor) Name() string { return "processor" }

// Start implements node.Service: it launches the main loop in a background
// goroutine and returns immediately.
func (p *Processor) Start() error {
	p.started.Do(func() {
		go p.run()
	})
	return nil
}

// Stop implements node.Service: it raises the exit flag and blocks until
// the main loop goroutine observes it and returns.
func (p *Processor) Stop() error {
	p.exit.Store(true)
	<-p.done
	return p.confirm.Close()
}

// run is the Processor thread's main loop.
func (p *Processor) run() {
	defer close(p.done)

	lastRootProgress := time.Time{}
	for {
		if p.exit.Load() {
			return
		}

		root := p.root()

		if time.Since(lastRootProgress) >= p.cfg.RootProgressInterval {
			timer := metrics.NewTimer(metrics.ProcessorRootAdvanceLatency)
			unrooted := p.confirm.VerifyForUnrooted(root, p.ledger)
			p.confirm.LogUnrooted(root.Slot(), unrooted)
			p.tr.AdvanceToRoot(root)
			timer.Stop()
			metrics.TrackerSlotsTracked.Set(int64(p.tr.SlotCount()))
			metrics.TrackerEpochsTracked.Set(int64(p.tr.EpochCount()))
			metrics.TrackerGossipOnlyStake.Set(int64(p.tr.TotalGossipOnlyStake()))
			metrics.TrackerLeaderScheduleEpoch.Set(int64(p.tr.LeaderScheduleEpoch()))
			metrics.TrackerCurrentEpoch.Set(int64(p.tr.CurrentEpoch()))
			lastRootProgress = time.Now()
		}

		newOptimistic, ok := p.listenAndConfirm(root)
		if !ok {
			return
		}
		if len(newOptimistic) > 0 {
			p.confirm.Record(newOptimistic)
			metrics.ProcessorOptimisticSlotsTracked.Set(int64(p.confirm.Len()))
		}
	}
}

// listenAndConfirm collects one batch of new confirmations: wait up to
// ListenConfirmBudget for either upstream bus to signal readiness, tolerating
// spurious wakeups by debiting elapsed time from the budget (minimum
// MinWaitStep per iteration); then drain both buses non-blockingly and run
// filterAndConfirm. ok is false if either upstream bus disconnected, which
// the caller treats as a clean stop.
func (p *Processor) listenAndConfirm(root bank.RootBank) (newOptimistic []vote.SlotHash, ok bool) {
	timer := metrics.NewTimer(metrics.ProcessorConfirmLoopLatency)
	defer timer.Stop()

	budget := p.cfg.ListenConfirmBudget
	for budget > 0 {
		step := p.cfg.MinWaitStep
		if step > budget {
			step = budget
		}
		start := time.Now()
		select {
		case <-p.buses.GossipTransactions.Ready():
		case <-p.buses.ReplayVotes.Ready():
		case <-p.buses.GossipTransactions.ClosedChan():
			return nil, false
		case <-p.buses.ReplayVotes.ClosedChan():
			return nil, false
		case <-time.After(step):
			// Spurious wakeup (timer fired with nothing ready) or a real
			// signal racing the budget's own clock -- either way, debit the
			// elapsed time and loop; TryRecv/DrainAll below will pick up
			// any real data regardless of which branch woke us.
		}
		elapsed := time.Since(start)
		if elapsed < p.cfg.MinWaitStep {
			elapsed = p.cfg.MinWaitStep
		}
		budget -= elapsed

		gossipBatch := p.buses.GossipTransactions.DrainAll()
		replayBatch := p.buses.ReplayVotes.DrainAll()
		if len(gossipBatch) == 0 && len(replayBatch) == 0 {
			if budget <= 0 {
				break
			}
			continue
		}
		return p.filterAndConfirm(gossipBatch, replayBatch, root), true
	}
	return nil, true
}
