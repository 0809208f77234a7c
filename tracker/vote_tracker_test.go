package tracker

import (
	"testing"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/types"
)

const slotsPerEpoch = types.Slot(4)

// fakeRootBank is a minimal in-memory bank.RootBank for exercising
// VoteTracker.AdvanceToRoot without a real ledger.
type fakeRootBank struct {
	slot   types.Slot
	stakes map[types.Epoch]bank.EpochStakes
}

func (f *fakeRootBank) Slot() types.Slot { return f.slot }
func (f *fakeRootBank) Epoch() types.Epoch {
	return f.EpochForSlot(f.slot)
}
func (f *fakeRootBank) EpochForSlot(slot types.Slot) types.Epoch {
	return types.Epoch(uint64(slot) / uint64(slotsPerEpoch))
}
func (f *fakeRootBank) EpochStakes(epoch types.Epoch) (bank.EpochStakes, bool) {
	s, ok := f.stakes[epoch]
	return s, ok
}
func (f *fakeRootBank) GetLeaderScheduleEpoch(slot types.Slot) types.Epoch {
	return f.EpochForSlot(slot) + 1
}

func voterStakes(voters ...types.VoterKey) bank.EpochStakes {
	auth := make(map[types.VoterKey]types.VoterKey, len(voters))
	accounts := make(map[types.VoterKey]bank.VoteAccountStake, len(voters))
	var total uint64
	for _, v := range voters {
		auth[v] = v
		accounts[v] = bank.VoteAccountStake{Stake: 100}
		total += 100
	}
	return bank.EpochStakes{AuthorizedVoters: auth, VoteAccounts: accounts, TotalStake: total}
}

func TestVoteTracker_EnsureSlotIdempotent(t *testing.T) {
	vt := NewVoteTracker()
	a := vt.EnsureSlot(5)
	b := vt.EnsureSlot(5)
	if a != b {
		t.Fatal("EnsureSlot must return the same tracker instance for the same slot")
	}
	if vt.SlotCount() != 1 {
		t.Fatalf("SlotCount() = %d, want 1", vt.SlotCount())
	}
}

func TestVoteTracker_AdvanceToRoot_PurgesSlotsBelowRoot(t *testing.T) {
	vt := NewVoteTracker()
	voter := types.VoterKey{1}

	vt.EnsureSlot(1)
	vt.EnsureSlot(2)
	vt.EnsureSlot(10)

	root := &fakeRootBank{
		slot: 10,
		stakes: map[types.Epoch]bank.EpochStakes{
			0: voterStakes(voter),
			1: voterStakes(voter),
			2: voterStakes(voter),
		},
	}
	vt.AdvanceToRoot(root)

	if vt.Slot(1) != nil || vt.Slot(2) != nil {
		t.Fatal("expected slots below root to be purged")
	}
	if vt.Slot(10) == nil {
		t.Fatal("expected slot at root to be retained")
	}
}

func TestVoteTracker_AdvanceToRoot_InstallsAndPurgesEpochs(t *testing.T) {
	vt := NewVoteTracker()
	voter := types.VoterKey{2}

	root := &fakeRootBank{
		slot: 1, // epoch 0
		stakes: map[types.Epoch]bank.EpochStakes{
			0: voterStakes(voter),
			1: voterStakes(voter),
		},
	}
	vt.AdvanceToRoot(root)
	if vt.EpochCount() == 0 {
		t.Fatal("expected at least one epoch installed")
	}
	if _, ok := vt.AuthorizedVoterFor(voter, 1, root); !ok {
		t.Fatal("expected authorized voter resolvable for epoch 0")
	}

	// Advance root into epoch 2: epoch 0's authorized map must be purged.
	root2 := &fakeRootBank{
		slot: 8, // epoch 2
		stakes: map[types.Epoch]bank.EpochStakes{
			0: voterStakes(voter),
			1: voterStakes(voter),
			2: voterStakes(voter),
			3: voterStakes(voter),
		},
	}
	vt.AdvanceToRoot(root2)
	if _, ok := vt.AuthorizedVoterFor(voter, 1, root2); ok {
		t.Fatal("expected epoch 0's authorized-voter map to be purged after root crossed epoch 2")
	}
	if _, ok := vt.AuthorizedVoterFor(voter, 9, root2); !ok {
		t.Fatal("expected epoch 2's authorized-voter map to be installed")
	}
	if got := vt.CurrentEpoch(); got != 2 {
		t.Fatalf("CurrentEpoch = %d, want 2", got)
	}
	if got := vt.LeaderScheduleEpoch(); got != 3 {
		t.Fatalf("LeaderScheduleEpoch = %d, want 3", got)
	}
}

func TestVoteTracker_AuthorizedVoterFor_UnknownEpoch(t *testing.T) {
	vt := NewVoteTracker()
	root := &fakeRootBank{slot: 0, stakes: map[types.Epoch]bank.EpochStakes{}}
	if _, ok := vt.AuthorizedVoterFor(types.VoterKey{9}, 100, root); ok {
		t.Fatal("expected unknown epoch to report not-ok")
	}
}
