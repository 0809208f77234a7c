package confirmation

import (
	"path/filepath"
	"testing"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

// fakeRootBank only needs a slot for these tests; the verifier never reads
// anything else off the root bank.
type fakeRootBank struct {
	slot types.Slot
}

func (f fakeRootBank) Slot() types.Slot                                  { return f.slot }
func (f fakeRootBank) Epoch() types.Epoch                                { return 0 }
func (f fakeRootBank) EpochForSlot(types.Slot) types.Epoch               { return 0 }
func (f fakeRootBank) EpochStakes(types.Epoch) (bank.EpochStakes, bool)  { return bank.EpochStakes{}, false }
func (f fakeRootBank) GetLeaderScheduleEpoch(types.Slot) types.Epoch     { return 0 }

// fakeLedger serves a fixed slot -> rooted-ancestor-hash table.
type fakeLedger struct {
	ancestors map[types.Slot]types.Hash
}

func (f fakeLedger) AncestorHash(slot types.Slot) (types.Hash, bool) {
	h, ok := f.ancestors[slot]
	return h, ok
}

func newVerifier(t *testing.T, initialRoot types.Slot) *Verifier {
	t.Helper()
	v, err := New(Config{}, initialRoot)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestVerifier_RecordAndLen(t *testing.T) {
	v := newVerifier(t, 0)
	v.Record(nil)
	if v.Len() != 0 {
		t.Fatalf("Len = %d after empty Record, want 0", v.Len())
	}
	v.Record([]vote.SlotHash{{Slot: 5, Hash: types.Hash{1}}, {Slot: 6, Hash: types.Hash{2}}})
	if v.Len() != 2 {
		t.Fatalf("Len = %d, want 2", v.Len())
	}
}

func TestVerifier_VerifyForUnrooted_SubsumedDroppedSilently(t *testing.T) {
	v := newVerifier(t, 0)
	h := types.Hash{0xaa}
	v.Record([]vote.SlotHash{{Slot: 3, Hash: h}})

	unrooted := v.VerifyForUnrooted(fakeRootBank{slot: 10}, fakeLedger{
		ancestors: map[types.Slot]types.Hash{3: h},
	})
	if len(unrooted) != 0 {
		t.Fatalf("subsumed entry must not be returned, got %v", unrooted)
	}
	if v.Len() != 0 {
		t.Fatalf("subsumed entry must leave the journal, Len = %d", v.Len())
	}
	if v.HighestRoot() != 10 {
		t.Fatalf("HighestRoot = %d, want 10", v.HighestRoot())
	}
}

func TestVerifier_VerifyForUnrooted_MismatchReturnedAndDropped(t *testing.T) {
	v := newVerifier(t, 0)
	confirmed := vote.SlotHash{Slot: 3, Hash: types.Hash{0xaa}}
	v.Record([]vote.SlotHash{confirmed})

	// The rooted chain settled on a different hash at slot 3: the local
	// optimistic confirmation was on a fork that lost.
	unrooted := v.VerifyForUnrooted(fakeRootBank{slot: 10}, fakeLedger{
		ancestors: map[types.Slot]types.Hash{3: {0xbb}},
	})
	if len(unrooted) != 1 || unrooted[0] != confirmed {
		t.Fatalf("mismatched entry must be returned for logging, got %v", unrooted)
	}
	if v.Len() != 0 {
		t.Fatalf("mismatched entry below root must still leave the journal, Len = %d", v.Len())
	}
}

func TestVerifier_VerifyForUnrooted_PendingRetained(t *testing.T) {
	v := newVerifier(t, 0)
	pending := vote.SlotHash{Slot: 20, Hash: types.Hash{0xcc}}
	v.Record([]vote.SlotHash{pending})

	unrooted := v.VerifyForUnrooted(fakeRootBank{slot: 10}, fakeLedger{})
	if len(unrooted) != 1 || unrooted[0] != pending {
		t.Fatalf("entry at or past root must be returned as still pending, got %v", unrooted)
	}
	if v.Len() != 1 {
		t.Fatalf("entry at or past root must stay in the journal, Len = %d", v.Len())
	}

	// A second pass with the same root must behave identically.
	unrooted = v.VerifyForUnrooted(fakeRootBank{slot: 10}, fakeLedger{})
	if len(unrooted) != 1 || v.Len() != 1 {
		t.Fatalf("second pass changed state: returned %v, Len = %d", unrooted, v.Len())
	}
}

func TestVerifier_VerifyForUnrooted_MissingAncestorTreatedAsMismatch(t *testing.T) {
	v := newVerifier(t, 0)
	confirmed := vote.SlotHash{Slot: 3, Hash: types.Hash{0xdd}}
	v.Record([]vote.SlotHash{confirmed})

	// Ledger has no answer for slot 3 at all.
	unrooted := v.VerifyForUnrooted(fakeRootBank{slot: 10}, fakeLedger{})
	if len(unrooted) != 1 || unrooted[0] != confirmed {
		t.Fatalf("unanswerable entry must be surfaced, got %v", unrooted)
	}
}

func TestVerifier_LogUnrootedDoesNotMutate(t *testing.T) {
	v := newVerifier(t, 0)
	v.Record([]vote.SlotHash{{Slot: 20, Hash: types.Hash{1}}})
	before := v.Len()
	v.LogUnrooted(10, []vote.SlotHash{{Slot: 3, Hash: types.Hash{2}}, {Slot: 20, Hash: types.Hash{1}}})
	if v.Len() != before {
		t.Fatal("LogUnrooted must not mutate the journal")
	}
}

func TestVerifier_PersistentJournalReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	cfg := Config{JournalPath: path}

	v, err := New(cfg, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []vote.SlotHash{
		{Slot: 7, Hash: types.Hash{0x01}},
		{Slot: 9, Hash: types.Hash{0x02}},
	}
	v.Record(entries)
	if err := v.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A fresh verifier over the same path sees the prior lifetime's journal.
	v2, err := New(cfg, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer v2.Close()
	if v2.Len() != len(entries) {
		t.Fatalf("reloaded Len = %d, want %d", v2.Len(), len(entries))
	}
}
