// Package forwarder implements the packet-forwarder thread: it bridges
// verified gossip vote packets to whichever bank the local node is
// currently producing as leader.
package forwarder

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/bus"
	"github.com/voteslistener/core/log"
	"github.com/voteslistener/core/metrics"
	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

// LeaderBankSource returns the bank the local node is currently producing,
// or nil if none.
type LeaderBankSource func() bank.LeaderBank

// Forwarder is the packet-forwarder thread. There is no explicit
// Idle/Forwarding state enum: haveBank captures the distinction, since
// leaderBank() is polled fresh every tick rather than pushed.
type Forwarder struct {
	cfg        Config
	leaderBank LeaderBankSource
	packets    *bus.Unbounded[vote.Packet]
	log        *log.Logger

	// latest holds the most recent not-necessarily-forwarded packet per
	// voter observed since buffering began; only a voter's latest vote is
	// ever worth forwarding.
	latest map[types.VoterKey]vote.Packet
	// sentSig tracks which signatures have already been forwarded to the
	// current leader bank; reset whenever the active bank's slot changes.
	sentSig     map[types.Signature]bool
	haveBank    bool
	currentSlot types.Slot

	// forwardRate tracks packets forwarded per second as 1/5/15-minute
	// EWMAs, reported in reportMetrics alongside each bank's final tally.
	forwardRate *metrics.Meter

	exit    atomic.Bool
	done    chan struct{}
	started sync.Once
}

// New constructs a Forwarder routing packets from the bus to whichever
// bank leaderBank reports as active.
func New(cfg Config, leaderBank LeaderBankSource, packets *bus.Unbounded[vote.Packet]) *Forwarder {
	return &Forwarder{
		cfg:         cfg,
		leaderBank:  leaderBank,
		packets:     packets,
		log:         log.Default().Module("forwarder"),
		latest:      make(map[types.VoterKey]vote.Packet),
		sentSig:     make(map[types.Signature]bool),
		forwardRate: metrics.NewMeter(),
		done:        make(chan struct{}),
	}
}

// Rate1 returns the 1-minute EWMA of packets forwarded per second.
func (f *Forwarder) Rate1() float64 { return f.forwardRate.Rate1() }

// Name implements node.Service.
func (f *Forwarder) Name() string { return "forwarder" }

// Start implements node.Service: launches the throttle loop in a background
// goroutine and returns immediately.
func (f *Forwarder) Start() error {
	f.started.Do(func() {
		go f.run()
	})
	return nil
}

// Stop implements node.Service: raises the exit flag and waits for the
// throttle loop to observe it and return.
func (f *Forwarder) Stop() error {
	f.exit.Store(true)
	<-f.done
	return nil
}

// run is the packet-forwarder thread's main loop: a ~10ms throttle tick.
func (f *Forwarder) run() {
	defer close(f.done)

	ticker := time.NewTicker(f.cfg.ForwardThrottle)
	defer ticker.Stop()

	for {
		if f.exit.Load() {
			return
		}
		select {
		case <-ticker.C:
			f.tick()
		case <-f.packets.ClosedChan():
			return
		}
	}
}

// tick implements one throttle interval: buffer newly-verified
// packets into per-voter latest-vote-only buckets, then — if a leader bank
// is active — forward every not-yet-sent latest packet, one atomic message
// per validator.
func (f *Forwarder) tick() {
	timer := metrics.NewTimer(metrics.ForwarderForwardLatency)
	defer timer.Stop()

	lb := f.leaderBank()
	wouldBeLeader := lb != nil && lb.WouldBeLeader(f.cfg.Horizon)

	for _, pkt := range f.packets.DrainAll() {
		if pkt.Discard {
			continue
		}
		if !wouldBeLeader {
			// Not near leadership: skip buffering entirely to save memory.
			metrics.ForwarderPacketsDropped.Inc()
			continue
		}
		voterKey, _, _, ok := vote.ParseVote(pkt.Transaction)
		if !ok {
			continue
		}
		f.latest[voterKey] = pkt
	}
	metrics.ForwarderBufferedVoters.Set(int64(len(f.latest)))

	if lb == nil {
		return
	}

	slot := lb.Slot()
	if !f.haveBank || slot != f.currentSlot {
		f.reportMetrics()
		f.sentSig = make(map[types.Signature]bool)
		f.currentSlot = slot
		f.haveBank = true
	}

	for voterKey, pkt := range f.latest {
		if f.sentSig[pkt.Signature] {
			continue
		}
		lb.Ingest(voterKey, [][]byte{encodePacket(pkt)})
		f.sentSig[pkt.Signature] = true
		metrics.ForwarderPacketsForwarded.Inc()
		f.forwardRate.Mark(1)
	}
}

// reportMetrics logs a summary of the bank this forwarder is leaving
// behind, fired on each leader-bank slot change.
func (f *Forwarder) reportMetrics() {
	if !f.haveBank {
		return
	}
	f.log.Info("leader bank advanced",
		"old_slot", f.currentSlot,
		"forwarded_signatures", len(f.sentSig),
		"forward_rate_1m", f.forwardRate.Rate1(),
	)
}

// encodePacket produces the raw wire bytes bank.LeaderBank.Ingest expects
// for one validator's vote packet. The on-disk/wire transaction format is
// owned by the surrounding validator; this is a minimal,
// self-describing encoding sufficient to round-trip a Packet within this
// process.
func encodePacket(pkt vote.Packet) []byte {
	tx := pkt.Transaction
	buf := make([]byte, 0, 8+types.VoterKeyLength+types.HashLength+8*len(tx.Slots))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(len(tx.Slots)))
	buf = append(buf, tmp[:]...)
	for _, s := range tx.Slots {
		binary.LittleEndian.PutUint64(tmp[:], uint64(s))
		buf = append(buf, tmp[:]...)
	}
	buf = append(buf, tx.Hash.Bytes()...)
	buf = append(buf, tx.VoteAccount.Bytes()...)
	buf = append(buf, pkt.Signature.Bytes()...)
	return buf
}
