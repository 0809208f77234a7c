// Package confirmation implements the optimistic-confirmation verifier: an
// append-only journal of locally observed (slot, hash) optimistic
// confirmations, and the root-progress check that detects which of them
// were actually subsumed by the chain that became root versus abandoned on
// a fork that never did.
package confirmation

import (
	"sync"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/confirmation/journal"
	"github.com/voteslistener/core/log"
	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

// Config configures the Optimistic Confirmation Verifier.
type Config struct {
	// JournalPath, if non-empty, enables a Pebble-backed persistent mirror
	// of the in-memory journal so a restarted validator reloads its
	// unrooted-optimistic-slots history instead of starting empty.
	JournalPath string
}

// Verifier is the optimistic-confirmation verifier. It is owned by the
// processor thread and is not safe for concurrent use by more than one
// goroutine — per-thread state that only the owning goroutine mutates.
type Verifier struct {
	mu          sync.Mutex
	highestRoot types.Slot
	entries     []vote.SlotHash
	store       *journal.PebbleStore
	log         *log.Logger
}

// New constructs a Verifier seeded with the bank's current root slot, and
// opens the optional Pebble journal store if Config.JournalPath is set. If a
// store is opened, its persisted entries (from a prior process lifetime)
// seed the in-memory journal.
func New(cfg Config, initialRoot types.Slot) (*Verifier, error) {
	v := &Verifier{
		highestRoot: initialRoot,
		log:         log.Default().Module("confirmation"),
	}
	if cfg.JournalPath != "" {
		store, err := journal.OpenPebbleStore(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		v.store = store
		entries, err := store.LoadAll()
		if err != nil {
			return nil, err
		}
		v.entries = entries
	}
	return v, nil
}

// Close releases the optional Pebble store, if one is open.
func (v *Verifier) Close() error {
	if v.store == nil {
		return nil
	}
	return v.store.Close()
}

// Record appends newly confirmed (slot, hash) pairs to the journal. It
// mirrors them to the optional persistent store, best-effort: a persistence
// failure is logged, not propagated, since the in-memory journal is always
// authoritative at runtime.
func (v *Verifier) Record(entries []vote.SlotHash) {
	if len(entries) == 0 {
		return
	}
	v.mu.Lock()
	v.entries = append(v.entries, entries...)
	v.mu.Unlock()

	if v.store != nil {
		if err := v.store.Append(entries); err != nil {
			v.log.Warn("failed to persist optimistic confirmation journal entries", "error", err)
		}
	}
}

// Len reports the number of entries currently held in the journal, for
// metrics.
func (v *Verifier) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// VerifyForUnrooted partitions the
// journal into subsumed entries (slot < newRoot.Slot() and the rooted
// ancestor chain at that slot matches the recorded hash — these are
// dropped from the journal, confirmed-and-settled) and everything else
// (still-unrooted-past-root: slot >= newRoot.Slot(), which remain pending
// and are retained in the journal; or slot < newRoot.Slot() with a
// mismatching ancestor, meaning the optimistic confirmation was made on a
// fork that did not become root — these are removed from the journal, same
// as subsumed entries, since slot < root is a settled question either way,
// but are included in the returned slice so the caller can flag them via
// LogUnrooted as the anomaly this verifier exists to detect).
//
// The returned slice is ordered the same as the journal.
func (v *Verifier) VerifyForUnrooted(newRoot bank.RootBank, ledger bank.Ledger) []vote.SlotHash {
	root := newRoot.Slot()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.highestRoot = root

	var (
		kept     []vote.SlotHash // retained in the journal afterward
		returned []vote.SlotHash
	)
	for _, e := range v.entries {
		if e.Slot >= root {
			kept = append(kept, e)
			returned = append(returned, e)
			continue
		}
		ancestorHash, ok := ledger.AncestorHash(e.Slot)
		if ok && ancestorHash == e.Hash {
			// Subsumed: the rooted chain agrees with what we optimistically
			// confirmed. Drop silently — nothing to report.
			continue
		}
		// Dropped: slot < root, but the rooted ancestor disagrees (or the
		// ledger no longer has an answer). Surface it once for logging,
		// then let it fall out of the journal.
		returned = append(returned, e)
	}
	v.entries = kept

	if v.store != nil {
		if err := v.store.Compact(kept); err != nil {
			v.log.Warn("failed to compact optimistic confirmation journal store", "error", err)
		}
	}
	return returned
}

// LogUnrooted is a best-effort diagnostic emission over the slice returned
// by VerifyForUnrooted; it never mutates verifier state.
// Entries with slot < root are logged as dropped-by-root anomalies; entries
// with slot >= root are logged at debug level as still pending.
func (v *Verifier) LogUnrooted(root types.Slot, unrooted []vote.SlotHash) {
	for _, e := range unrooted {
		if e.Slot < root {
			v.log.Warn("optimistically confirmed slot was not subsumed by new root",
				"slot", e.Slot, "hash", e.Hash, "root", root)
			continue
		}
		v.log.Debug("optimistic confirmation still unrooted", "slot", e.Slot, "hash", e.Hash, "root", root)
	}
}

// HighestRoot returns the highest root slot last observed by
// VerifyForUnrooted.
func (v *Verifier) HighestRoot() types.Slot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.highestRoot
}
