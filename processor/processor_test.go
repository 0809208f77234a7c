package processor

import (
	"testing"
	"time"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/bus"
	"github.com/voteslistener/core/confirmation"
	"github.com/voteslistener/core/tracker"
	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

// slotsPerTestEpoch is the fixed epoch length fakeRootBank uses to map
// slots to epochs, so tests can construct a genuinely unknown future epoch
// (S3) instead of everything collapsing onto epoch 0.
const slotsPerTestEpoch = types.Slot(4)

// fakeRootBank is a minimal in-memory bank.RootBank for processor tests: a
// configurable root slot and a per-epoch stake table.
type fakeRootBank struct {
	slot          types.Slot
	stakesByEpoch map[types.Epoch]bank.EpochStakes
}

func (f *fakeRootBank) Slot() types.Slot   { return f.slot }
func (f *fakeRootBank) Epoch() types.Epoch { return f.EpochForSlot(f.slot) }
func (f *fakeRootBank) EpochForSlot(slot types.Slot) types.Epoch {
	return types.Epoch(uint64(slot) / uint64(slotsPerTestEpoch))
}
func (f *fakeRootBank) GetLeaderScheduleEpoch(slot types.Slot) types.Epoch {
	return f.EpochForSlot(slot) + 1
}
func (f *fakeRootBank) EpochStakes(epoch types.Epoch) (bank.EpochStakes, bool) {
	s, ok := f.stakesByEpoch[epoch]
	return s, ok
}

func singleEpochBank(slot types.Slot, stakes bank.EpochStakes) *fakeRootBank {
	return &fakeRootBank{slot: slot, stakesByEpoch: map[types.Epoch]bank.EpochStakes{0: stakes}}
}

type fakeLedger struct{}

func (fakeLedger) AncestorHash(types.Slot) (types.Hash, bool) { return types.Hash{}, false }

func newBuses() Buses {
	return Buses{
		GossipTransactions: bus.NewUnbounded[*vote.SignedVoteTransaction](),
		ReplayVotes:        bus.NewUnbounded[vote.ReplayVote](),
		VerifiedVote:       bus.NewUnbounded[vote.VerifiedVote](),
		GossipVoteHash:     bus.NewUnbounded[vote.GossipVoteHash](),
		DuplicateConfirmed: bus.NewUnbounded[[]vote.SlotHash](),
		BankNotification:   bus.NewUnbounded[vote.BankNotification](),
	}
}

func newTestProcessor(t *testing.T, root *fakeRootBank) *Processor {
	t.Helper()
	cfg := DefaultConfig()
	tr := tracker.NewVoteTracker()
	// Seed the authorized-voter registry for epoch 0 the way the real
	// Processor thread does via advance_to_root, so the authorization
	// filter in filterAndConfirm has something to check gossip votes
	// against.
	tr.AdvanceToRoot(root)
	p, err := New(cfg, tr, func() bank.RootBank { return root }, fakeLedger{}, newBuses(), nil, confirmation.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func gossipTx(voter types.VoterKey, slots []types.Slot, hash types.Hash) *vote.SignedVoteTransaction {
	return &vote.SignedVoteTransaction{
		VoteAccount: voter,
		Slots:       slots,
		Hash:        hash,
		Signers:     []vote.SignedBy{{PublicKey: voter}},
	}
}

func stakesFor(voters []types.VoterKey, each uint64) bank.EpochStakes {
	auth := make(map[types.VoterKey]types.VoterKey, len(voters))
	accounts := make(map[types.VoterKey]bank.VoteAccountStake, len(voters))
	var total uint64
	for _, v := range voters {
		auth[v] = v
		accounts[v] = bank.VoteAccountStake{Stake: each}
		total += each
	}
	return bank.EpochStakes{AuthorizedVoters: auth, VoteAccounts: accounts, TotalStake: total}
}

// S1 -- basic tally: 10 equal-stake validators all vote [1,2]/H0; total
// stake 1000 crosses VOTE_THRESHOLD (2/3) exactly once, and every voter's
// Vote is published on the verified-vote bus.
func TestFilterAndConfirm_S1_BasicTally(t *testing.T) {
	voters := make([]types.VoterKey, 10)
	for i := range voters {
		voters[i] = types.VoterKey{byte(i + 1)}
	}
	root := singleEpochBank(0, stakesFor(voters, 100))
	p := newTestProcessor(t, root)

	hash := types.Hash{0xaa}
	var gossipBatch []*vote.SignedVoteTransaction
	for _, v := range voters {
		gossipBatch = append(gossipBatch, gossipTx(v, []types.Slot{1, 2}, hash))
	}

	newOptimistic := p.filterAndConfirm(gossipBatch, nil, root)

	slotTracker := p.tr.Slot(2)
	if slotTracker == nil {
		t.Fatal("expected slot 2 tracker to exist")
	}
	if got := slotTracker.StakeForHash(hash); got != 1000 {
		t.Fatalf("total_stake = %d, want 1000", got)
	}
	if len(newOptimistic) != 1 {
		t.Fatalf("expected VOTE_THRESHOLD to cross exactly once, got %d crossings", len(newOptimistic))
	}

	count := 0
	for {
		vv, ok := p.buses.VerifiedVote.TryRecv()
		if !ok {
			break
		}
		count++
		if len(vv.Slots) != 2 || vv.Slots[0] != 1 || vv.Slots[1] != 2 {
			t.Fatalf("unexpected verified-vote slots: %v", vv.Slots)
		}
	}
	if count != 10 {
		t.Fatalf("expected 10 verified-vote entries, got %d", count)
	}
}

// S2 -- replay-then-gossip promotion: one validator, stake 100. Replay
// first, gossip second, same content. gossip_only_stake should equal the
// voter's stake. No gossip-hash bus message fires: the replay pass already
// added the voter to the (slot, hash) stake tracker, so the gossip pass
// sees wasNewlyAdded=false and the publish gate stays shut -- the bus
// reports first sightings per (voter, slot, hash), not per origin.
func TestFilterAndConfirm_S2_ReplayThenGossipPromotion(t *testing.T) {
	voter := types.VoterKey{7}
	root := singleEpochBank(0, stakesFor([]types.VoterKey{voter}, 100))
	p := newTestProcessor(t, root)

	hash := types.Hash{0xbb}
	replay := []vote.ReplayVote{{VoterKey: voter, Vote: vote.Vote{VoteAccount: voter, Slots: []types.Slot{1}, Hash: hash}}}
	p.filterAndConfirm(nil, replay, root)

	gossip := []*vote.SignedVoteTransaction{gossipTx(voter, []types.Slot{1}, hash)}
	p.filterAndConfirm(gossip, nil, root)

	slotTracker := p.tr.Slot(1)
	if slotTracker == nil {
		t.Fatal("expected slot 1 tracker to exist")
	}
	if got := slotTracker.GossipOnlyStake(); got != 100 {
		t.Fatalf("gossip_only_stake = %d, want 100", got)
	}

	count := 0
	for {
		if _, ok := p.buses.GossipVoteHash.TryRecv(); !ok {
			break
		}
		count++
	}
	if count != 0 {
		t.Fatalf("expected no gossip-hash message after a replay-first sighting, got %d", count)
	}
}

// Gossip-first sighting: the gossip-hash bus fires exactly once, on the
// delivery that newly adds the voter to the (slot, hash) stake tracker;
// redelivering the same vote publishes nothing further.
func TestFilterAndConfirm_GossipFirstPublishesHashOnce(t *testing.T) {
	voter := types.VoterKey{8}
	root := singleEpochBank(0, stakesFor([]types.VoterKey{voter}, 100))
	p := newTestProcessor(t, root)

	gossip := []*vote.SignedVoteTransaction{gossipTx(voter, []types.Slot{1}, types.Hash{0xbc})}
	p.filterAndConfirm(gossip, nil, root)
	p.filterAndConfirm(gossip, nil, root)

	count := 0
	for {
		if _, ok := p.buses.GossipVoteHash.TryRecv(); !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one gossip-hash message for a gossip-first sighting, got %d", count)
	}
}

// S3 -- unknown epoch: the vote's slot lands in an epoch the root bank has
// no stake table for; no tracker should be created. Uses a replay vote so
// the authorization filter (which would otherwise reject it first, for the
// wrong reason) never enters into it.
func TestFilterAndConfirm_S3_UnknownEpoch(t *testing.T) {
	voter := types.VoterKey{3}
	root := singleEpochBank(3, stakesFor([]types.VoterKey{voter}, 100))
	p := newTestProcessor(t, root)

	// Slot 10 falls in epoch 2 under slotsPerTestEpoch, but singleEpochBank
	// only seeds epoch 0's stake table.
	replay := []vote.ReplayVote{{VoterKey: voter, Vote: vote.Vote{VoteAccount: voter, Slots: []types.Slot{10}, Hash: types.Hash{0xcc}}}}
	p.filterAndConfirm(nil, replay, root)

	if p.tr.Slot(10) != nil {
		t.Fatal("expected no tracker for a vote whose epoch is unknown")
	}
}

// S4 -- below root: a vote whose tip is at or below the current root is
// entirely ignored.
func TestFilterAndConfirm_S4_BelowRoot(t *testing.T) {
	voter := types.VoterKey{4}
	root := singleEpochBank(3, stakesFor([]types.VoterKey{voter}, 100))
	p := newTestProcessor(t, root)

	gossip := []*vote.SignedVoteTransaction{gossipTx(voter, []types.Slot{1, 2}, types.Hash{0xdd})}
	p.filterAndConfirm(gossip, nil, root)

	if p.tr.Slot(1) != nil || p.tr.Slot(2) != nil {
		t.Fatal("expected no trackers created for a vote entirely below root")
	}
}

// S6 -- authorization filter: a gossip vote signed only by a non-authorized
// key must be silently dropped without mutating any tracker.
func TestFilterAndConfirm_S6_AuthorizationFilter(t *testing.T) {
	authorized := types.VoterKey{5}
	impostor := types.VoterKey{6}
	root := singleEpochBank(0, stakesFor([]types.VoterKey{authorized}, 100))
	p := newTestProcessor(t, root)

	tx := &vote.SignedVoteTransaction{
		VoteAccount: authorized,
		Slots:       []types.Slot{1},
		Hash:        types.Hash{0xee},
		Signers:     []vote.SignedBy{{PublicKey: impostor}},
	}
	p.filterAndConfirm([]*vote.SignedVoteTransaction{tx}, nil, root)

	if p.tr.Slot(1) != nil {
		t.Fatal("expected no tracker created for a vote signed only by an unauthorized key")
	}
}

// S5 -- event ordering: for a single voter with stake 100, every
// gossip/replay/both permutation converges on the same final total_stake
// and gossip_only_stake.
func TestFilterAndConfirm_S5_EventOrdering(t *testing.T) {
	hash := types.Hash{0x11}
	type step struct{ gossip, replay bool }
	sequences := [][]step{
		{{gossip: true}},
		{{replay: true}},
		{{gossip: true}, {replay: true}},
		{{replay: true}, {gossip: true}},
		{{gossip: true, replay: true}},
		{{gossip: true}, {replay: true}, {gossip: true, replay: true}},
	}

	for i, seq := range sequences {
		voter := types.VoterKey{byte(i + 1)}
		root := singleEpochBank(0, stakesFor([]types.VoterKey{voter}, 100))
		p := newTestProcessor(t, root)

		wantGossipOnly := false
		for _, st := range seq {
			var gossipBatch []*vote.SignedVoteTransaction
			var replayBatch []vote.ReplayVote
			if st.gossip {
				gossipBatch = append(gossipBatch, gossipTx(voter, []types.Slot{1}, hash))
				wantGossipOnly = true
			}
			if st.replay {
				replayBatch = append(replayBatch, vote.ReplayVote{VoterKey: voter, Vote: vote.Vote{VoteAccount: voter, Slots: []types.Slot{1}, Hash: hash}})
			}
			p.filterAndConfirm(gossipBatch, replayBatch, root)
		}

		st := p.tr.Slot(1)
		if st == nil {
			t.Fatalf("sequence %d: expected slot 1 tracker", i)
		}
		if got := st.StakeForHash(hash); got != 100 {
			t.Fatalf("sequence %d: total_stake = %d, want 100", i, got)
		}
		wantStake := uint64(0)
		if wantGossipOnly {
			wantStake = 100
		}
		if got := st.GossipOnlyStake(); got != wantStake {
			t.Fatalf("sequence %d: gossip_only_stake = %d, want %d", i, got, wantStake)
		}
	}
}

// TestFilterAndConfirm_DuplicateReplayNotNewVote exercises the
// new-information gate directly: redelivering the exact same
// replay vote must not fire a second verified-vote publication, since the
// tip slot's AddToHash call reports wasNewlyAdded=false on the repeat.
func TestFilterAndConfirm_DuplicateReplayNotNewVote(t *testing.T) {
	voter := types.VoterKey{9}
	root := singleEpochBank(0, stakesFor([]types.VoterKey{voter}, 100))
	p := newTestProcessor(t, root)

	hash := types.Hash{0x22}
	replay := []vote.ReplayVote{{VoterKey: voter, Vote: vote.Vote{VoteAccount: voter, Slots: []types.Slot{1}, Hash: hash}}}

	p.filterAndConfirm(nil, replay, root)
	p.filterAndConfirm(nil, replay, root)

	count := 0
	for {
		if _, ok := p.buses.VerifiedVote.TryRecv(); !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one verified-vote publication across both deliveries, got %d", count)
	}
}

// TestListenAndConfirm_SpuriousWakeup exercises the budget-debiting inner
// loop's tolerance for a ready-signal firing with nothing actually queued
// by the time DrainAll runs.
func TestListenAndConfirm_SpuriousWakeup(t *testing.T) {
	voter := types.VoterKey{1}
	root := singleEpochBank(0, stakesFor([]types.VoterKey{voter}, 100))
	p := newTestProcessor(t, root)
	p.cfg.ListenConfirmBudget = 50 * time.Millisecond
	p.cfg.MinWaitStep = 2 * time.Millisecond

	// Fire a spurious ready signal with nothing behind it: Send+immediate
	// TryRecv back out leaves the "ready" hint in the channel with an empty
	// queue once listenAndConfirm gets to it.
	p.buses.GossipTransactions.Send(nil)
	p.buses.GossipTransactions.TryRecv()

	done := make(chan struct{})
	var gotEmpty bool
	go func() {
		_, ok := p.listenAndConfirm(root)
		gotEmpty = ok
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listenAndConfirm did not return within its budget")
	}
	if !gotEmpty {
		t.Fatal("expected listenAndConfirm to report ok=true after exhausting its budget on a spurious wakeup")
	}
}
