package main

import (
	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

// The four types below stand in for the external collaborators owned by
// the surrounding validator: on-disk ledger storage, the replay executor,
// the leader scheduler, and low-level gossip transport. None of that is
// this core's responsibility to implement, so
// this binary wires minimal, clearly-labeled placeholders that make the
// three-thread pipeline runnable standalone (e.g. for smoke-testing the
// wiring itself); a real deployment replaces every one of them with handles
// into the actual validator's root bank, leader bank, and gossip client.

// staticRootBank is a RootBank that never advances past the slot/epoch it
// was constructed with, and knows the stake distribution for exactly the
// epochs it was seeded with. Good enough to exercise slot tracking,
// authorized-voter lookup, and root advancement against a fixed epoch
// schedule; a real root bank instead tracks live ledger replay progress.
type staticRootBank struct {
	slot           types.Slot
	epoch          types.Epoch
	slotsPerEpoch  types.Slot
	stakesByEpoch  map[types.Epoch]bank.EpochStakes
	leaderSchedule types.Epoch
}

func newStaticRootBank(slot types.Slot, slotsPerEpoch types.Slot) *staticRootBank {
	epoch := types.Epoch(uint64(slot) / uint64(slotsPerEpoch))
	return &staticRootBank{
		slot:           slot,
		epoch:          epoch,
		slotsPerEpoch:  slotsPerEpoch,
		stakesByEpoch:  map[types.Epoch]bank.EpochStakes{epoch: {}},
		leaderSchedule: epoch,
	}
}

func (b *staticRootBank) Slot() types.Slot { return b.slot }
func (b *staticRootBank) Epoch() types.Epoch { return b.epoch }

func (b *staticRootBank) EpochForSlot(slot types.Slot) types.Epoch {
	return types.Epoch(uint64(slot) / uint64(b.slotsPerEpoch))
}

func (b *staticRootBank) EpochStakes(epoch types.Epoch) (bank.EpochStakes, bool) {
	stakes, ok := b.stakesByEpoch[epoch]
	return stakes, ok
}

func (b *staticRootBank) GetLeaderScheduleEpoch(slot types.Slot) types.Epoch {
	return b.leaderSchedule
}

// noLeaderBank is a LeaderBank that is never near leadership: packet
// buffering stays gated off and Ingest is never called. A
// real deployment supplies the bank the local node is currently producing,
// if any.
type noLeaderBank struct{}

func (noLeaderBank) Slot() types.Slot                { return 0 }
func (noLeaderBank) WouldBeLeader(horizon int) bool  { return false }
func (noLeaderBank) Ingest(types.VoterKey, [][]byte) {}

// noLedger answers every ancestor-hash lookup as unknown, so the
// confirmation verifier never treats a journal entry as subsumed: entries
// below the root are reported as unrooted and dropped from the journal,
// while entries at or above the root stay in it. A real deployment
// supplies read access to the rooted ancestor chain.
type noLedger struct{}

func (noLedger) AncestorHash(types.Slot) (types.Hash, bool) { return types.Hash{}, false }

// noGossipSource reports no new votes on every poll. A real deployment
// supplies the gossip mesh's cursor-addressable crds reader.
type noGossipSource struct{}

func (noGossipSource) FetchSince(cursor uint64) ([]*vote.SignedVoteTransaction, uint64, error) {
	return nil, cursor, nil
}

// staticRootBankSource wraps a RootBankSource that always returns the same
// staticRootBank; factored out so main can pass a function value without
// exposing the concrete type to the processor package.
func staticRootBankSource(b *staticRootBank) func() bank.RootBank {
	return func() bank.RootBank { return b }
}
