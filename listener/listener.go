// Package listener implements the gossip-ingest thread: it pulls signed
// vote transactions from the gossip mesh, runs them through the batch
// signature verifier, and fans the result out to the transaction and
// packet buses.
package listener

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/voteslistener/core/bus"
	"github.com/voteslistener/core/crypto"
	"github.com/voteslistener/core/log"
	"github.com/voteslistener/core/metrics"
	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

// GossipSource is the inbound gossip producer: a sequence of signed vote
// transactions reachable by a monotonically advancing cursor. Not
// implemented here; owned by the surrounding validator's gossip subsystem.
type GossipSource interface {
	// FetchSince returns every candidate vote transaction observed after
	// cursor, plus the cursor value to resume from on the next call. A
	// transient fetch failure returns a non-nil err; the Listener logs and
	// continues rather than retrying immediately.
	FetchSince(cursor uint64) (txs []*vote.SignedVoteTransaction, nextCursor uint64, err error)
}

// Buses bundles the channels the Listener thread writes to: verified
// transactions for the Processor, and every candidate packet (verified or
// not, tagged with Discard) for the Forwarder.
type Buses struct {
	GossipTransactions *bus.Unbounded[*vote.SignedVoteTransaction]
	VerifiedPackets    *bus.Unbounded[vote.Packet]
}

// Listener is the gossip-ingest thread.
type Listener struct {
	cfg    Config
	src    GossipSource
	buses  Buses
	verify *crypto.BatchVerifier
	log    *log.Logger

	// rate tracks the verified-vote ingestion rate as 1/5/15-minute EWMAs,
	// the same shape operators read off a Unix load average.
	rate *metrics.Meter

	cursor uint64

	exit    atomic.Bool
	done    chan struct{}
	started sync.Once
}

// New constructs a Listener reading from src and publishing to buses.
func New(cfg Config, src GossipSource, buses Buses) *Listener {
	return &Listener{
		cfg:    cfg,
		src:    src,
		buses:  buses,
		verify: crypto.NewBatchVerifier(cfg.Verifier),
		log:    log.Default().Module("listener"),
		rate:   metrics.NewMeter(),
		done:   make(chan struct{}),
	}
}

// Rate1 returns the 1-minute EWMA of verified votes ingested per second.
func (l *Listener) Rate1() float64 { return l.rate.Rate1() }

// Name implements node.Service.
func (l *Listener) Name() string { return "listener" }

// Start implements node.Service: launches the main loop in a background
// goroutine and returns immediately.
func (l *Listener) Start() error {
	l.started.Do(func() {
		go l.run()
	})
	return nil
}

// Stop implements node.Service: raises the exit flag and waits for the
// main loop to observe it and return.
func (l *Listener) Stop() error {
	l.exit.Store(true)
	<-l.done
	return nil
}

// run is the Listener thread's main loop.
func (l *Listener) run() {
	defer close(l.done)

	for {
		if l.exit.Load() {
			return
		}

		timer := metrics.NewTimer(metrics.ListenerPollLatency)
		candidates, next, err := l.src.FetchSince(l.cursor)
		timer.Stop()
		if err != nil {
			l.log.Warn("gossip fetch failed, continuing", "error", err)
			time.Sleep(l.cfg.GossipSleep)
			continue
		}
		l.cursor = next
		metrics.ListenerCursor.Set(int64(l.cursor))

		if len(candidates) > 0 {
			metrics.ListenerVotesReceived.Add(int64(len(candidates)))
			if !l.tick(candidates) {
				return
			}
		}

		time.Sleep(l.cfg.GossipSleep)
	}
}

// tick runs one batch of candidates through the verifier and fans the
// result out to both buses. It returns false if a downstream bus has
// disconnected, signaling the caller to stop.
func (l *Listener) tick(candidates []*vote.SignedVoteTransaction) bool {
	entries, entryTx := buildEntries(candidates)
	result := l.verify.BatchVerify(entries)

	invalid := make(map[int]bool, len(result.InvalidIdxs))
	for _, idx := range result.InvalidIdxs {
		invalid[idx] = true
	}

	// A transaction is valid only if every one of its signer entries
	// verified (a single forged signer must not admit the transaction);
	// malformed transactions (no slots or no signers) never entered the
	// batch at all and are treated as invalid for lack of any entry.
	validTx := make([]bool, len(candidates))
	hadEntry := make([]bool, len(candidates))
	for _, txIdx := range entryTx {
		hadEntry[txIdx] = true
	}
	for i := range candidates {
		validTx[i] = hadEntry[i]
	}
	for entryIdx, txIdx := range entryTx {
		if invalid[entryIdx] {
			validTx[txIdx] = false
		}
	}

	for i, tx := range candidates {
		discard := !validTx[i]
		if discard {
			metrics.ListenerVotesRejected.Inc()
		} else {
			metrics.ListenerVotesVerified.Inc()
			l.rate.Mark(1)
		}

		packet := vote.Packet{
			Signature:   primarySignature(tx),
			Transaction: tx,
			Discard:     discard,
		}
		if !l.buses.VerifiedPackets.Send(packet) {
			return false
		}

		if discard {
			continue
		}
		if !l.buses.GossipTransactions.Send(tx) {
			return false
		}
	}
	return true
}

// buildEntries flattens every candidate's signer list into a single
// verification batch, along with a parallel slice mapping each
// entry back to its owning candidate's index.
func buildEntries(candidates []*vote.SignedVoteTransaction) (entries []crypto.BatchVerifyEntry, entryTx []int) {
	for txIdx, tx := range candidates {
		if len(tx.Slots) == 0 || len(tx.Signers) == 0 {
			continue
		}
		v := vote.Vote{VoteAccount: tx.VoteAccount, Slots: tx.Slots, Hash: tx.Hash}
		digest := vote.ComputeDigest(v)
		for _, signer := range tx.Signers {
			entries = append(entries, crypto.BatchVerifyEntry{
				Pubkey:    signer.PublicKey.Bytes(),
				Message:   digest[:],
				Signature: signer.Signature.Bytes(),
			})
			entryTx = append(entryTx, txIdx)
		}
	}
	return entries, entryTx
}

// primarySignature returns the signature a Packet's signature field uses to
// identify the transaction downstream: the vote account's own signer if
// present, otherwise the first signer.
func primarySignature(tx *vote.SignedVoteTransaction) types.Signature {
	for _, s := range tx.Signers {
		if s.PublicKey == tx.VoteAccount {
			return s.Signature
		}
	}
	if len(tx.Signers) > 0 {
		return tx.Signers[0].Signature
	}
	return types.Signature{}
}
