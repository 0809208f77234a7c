package forwarder

import (
	"sync"
	"testing"
	"time"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/bus"
	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

type fakeLeaderBank struct {
	mu           sync.Mutex
	slot         types.Slot
	leader       bool
	ingested     map[types.VoterKey][][]byte
	ingestCalled int
}

func newFakeLeaderBank(slot types.Slot) *fakeLeaderBank {
	return &fakeLeaderBank{slot: slot, leader: true, ingested: make(map[types.VoterKey][][]byte)}
}

func (f *fakeLeaderBank) Slot() types.Slot { return f.slot }
func (f *fakeLeaderBank) WouldBeLeader(int) bool {
	return f.leader
}
func (f *fakeLeaderBank) Ingest(voterKey types.VoterKey, raw [][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested[voterKey] = append(f.ingested[voterKey], raw...)
	f.ingestCalled++
}

func packetFor(voter types.VoterKey, sig types.Signature) vote.Packet {
	return vote.Packet{
		Signature: sig,
		Transaction: &vote.SignedVoteTransaction{
			VoteAccount: voter,
			Slots:       []types.Slot{1},
			Hash:        types.Hash{0x01},
			Signers:     []vote.SignedBy{{PublicKey: voter}},
		},
	}
}

func TestForwarder_NoLeaderBank_PacketsDroppedNotBuffered(t *testing.T) {
	packets := bus.NewUnbounded[vote.Packet]()
	f := New(DefaultConfig(), func() bank.LeaderBank { return nil }, packets)
	voter := types.VoterKey{1}
	packets.Send(packetFor(voter, types.Signature{0xaa}))

	f.tick()

	if len(f.latest) != 0 {
		t.Fatalf("expected no buffered packets with no leader bank nearby, got %d", len(f.latest))
	}
}

func TestForwarder_ForwardsLatestPacketOncePerSignature(t *testing.T) {
	packets := bus.NewUnbounded[vote.Packet]()
	lb := newFakeLeaderBank(5)
	f := New(DefaultConfig(), func() bank.LeaderBank { return lb }, packets)

	voter := types.VoterKey{2}
	packets.Send(packetFor(voter, types.Signature{0xbb}))
	f.tick()

	if lb.ingestCalled != 1 {
		t.Fatalf("expected exactly one Ingest call, got %d", lb.ingestCalled)
	}

	// Same tick again with nothing new queued: the signature was already
	// forwarded to this bank, so no further Ingest call for it.
	f.tick()
	if lb.ingestCalled != 1 {
		t.Fatalf("expected no re-forward of an already-sent signature, got %d calls", lb.ingestCalled)
	}
}

func TestForwarder_BankSlotChangeResetsSentSet(t *testing.T) {
	packets := bus.NewUnbounded[vote.Packet]()
	lb := newFakeLeaderBank(1)
	var current bank.LeaderBank = lb
	f := New(DefaultConfig(), func() bank.LeaderBank { return current }, packets)

	voter := types.VoterKey{3}
	packets.Send(packetFor(voter, types.Signature{0xcc}))
	f.tick()
	if lb.ingestCalled != 1 {
		t.Fatalf("expected one Ingest call on first bank, got %d", lb.ingestCalled)
	}

	lb2 := newFakeLeaderBank(2)
	current = lb2
	f.tick()
	if lb2.ingestCalled != 1 {
		t.Fatalf("expected the same latest vote re-forwarded to the new bank, got %d calls", lb2.ingestCalled)
	}
}

func TestForwarder_StartStop(t *testing.T) {
	packets := bus.NewUnbounded[vote.Packet]()
	cfg := DefaultConfig()
	cfg.ForwardThrottle = time.Millisecond
	f := New(cfg, func() bank.LeaderBank { return nil }, packets)

	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
