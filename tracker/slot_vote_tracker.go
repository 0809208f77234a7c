// Package tracker holds the stake-accounting core of the vote-listening
// pipeline: per-slot and per-(slot,hash) vote tallies, and the top-level
// registry that owns them and the epoch-authorized-voter map.
package tracker

import (
	"sync"

	"github.com/voteslistener/core/types"
)

// VoteStakeTracker accumulates the stake of distinct voters that have
// confirmed one (slot, hash) pair, and reports threshold crossings exactly
// once each over its lifetime.
type VoteStakeTracker struct {
	votedSet          map[types.VoterKey]struct{}
	totalStake        uint64
	thresholdsCrossed map[float64]bool
}

func newVoteStakeTracker() *VoteStakeTracker {
	return &VoteStakeTracker{
		votedSet:          make(map[types.VoterKey]struct{}),
		thresholdsCrossed: make(map[float64]bool),
	}
}

// add records voterKey's stake against this (slot, hash) pair if it has not
// already contributed, then checks each threshold fraction against
// total_stake / total_epoch_stake. crossed[i] is true iff thresholds[i] was
// not previously crossed and just became satisfied by this call.
func (v *VoteStakeTracker) add(voterKey types.VoterKey, voterStake, totalEpochStake uint64, thresholds []float64) (crossed []bool, wasNewlyAdded bool) {
	if _, exists := v.votedSet[voterKey]; !exists {
		v.votedSet[voterKey] = struct{}{}
		v.totalStake += voterStake
		wasNewlyAdded = true
	}

	crossed = make([]bool, len(thresholds))
	if totalEpochStake == 0 {
		return crossed, wasNewlyAdded
	}
	frac := float64(v.totalStake) / float64(totalEpochStake)
	for i, th := range thresholds {
		if v.thresholdsCrossed[th] {
			continue
		}
		if frac >= th {
			v.thresholdsCrossed[th] = true
			crossed[i] = true
		}
	}
	return crossed, wasNewlyAdded
}

// TotalStake returns the accumulated stake for this (slot, hash) pair.
func (v *VoteStakeTracker) TotalStake() uint64 { return v.totalStake }

// SlotVoteTracker holds every observation the vote-listening core has made
// for a single slot: which voters it has seen (and whether gossip ever
// confirmed them), and the stake tally for each distinct hash proposed for
// that slot.
type SlotVoteTracker struct {
	mu sync.Mutex

	voted                 map[types.VoterKey]bool
	optimisticByHash      map[types.Hash]*VoteStakeTracker
	updatesSinceLastFetch []types.VoterKey
	gossipOnlyStake       uint64
}

// NewSlotVoteTracker returns an empty tracker for a newly observed slot.
func NewSlotVoteTracker() *SlotVoteTracker {
	return &SlotVoteTracker{
		voted:            make(map[types.VoterKey]bool),
		optimisticByHash: make(map[types.Hash]*VoteStakeTracker),
	}
}

// NoteVoter idempotently records that voterKey voted for this slot.
// isGossipNow reports whether the current observation came from gossip.
// It returns true exactly when this observation is new information: either
// voterKey has never been seen on this slot, or it was previously seen only
// via replay and this observation is the first gossip sighting. When it
// returns true with isGossipNow set, stake is added to gossipOnlyStake —
// at most once over the tracker's lifetime for a given voter.
func (t *SlotVoteTracker) NoteVoter(voterKey types.VoterKey, isGossipNow bool, stake uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, existed := t.voted[voterKey]
	switch {
	case !existed:
		t.voted[voterKey] = isGossipNow
	case !prev && isGossipNow:
		t.voted[voterKey] = true
	default:
		return false
	}
	t.updatesSinceLastFetch = append(t.updatesSinceLastFetch, voterKey)
	if isGossipNow {
		t.gossipOnlyStake += stake
	}
	return true
}

// AddToHash records voterKey's stake against hash for this slot, creating
// the (slot, hash) tally lazily on first use, and reports which of
// thresholds were just crossed.
func (t *SlotVoteTracker) AddToHash(hash types.Hash, voterKey types.VoterKey, voterStake, totalEpochStake uint64, thresholds []float64) (crossed []bool, wasNewlyAdded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	vst, ok := t.optimisticByHash[hash]
	if !ok {
		vst = newVoteStakeTracker()
		t.optimisticByHash[hash] = vst
	}
	return vst.add(voterKey, voterStake, totalEpochStake, thresholds)
}

// StakeForHash returns the accumulated confirming stake for (slot, hash),
// or 0 if nothing has voted for hash on this slot yet.
func (t *SlotVoteTracker) StakeForHash(hash types.Hash) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	vst, ok := t.optimisticByHash[hash]
	if !ok {
		return 0
	}
	return vst.TotalStake()
}

// GossipOnlyStake returns the stake credited by NoteVoter on each voter's
// first gossip sighting on this slot, including voters first seen via
// replay.
func (t *SlotVoteTracker) GossipOnlyStake() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gossipOnlyStake
}

// VoteCount returns the number of distinct voters recorded for this slot.
func (t *SlotVoteTracker) VoteCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.voted)
}

// DrainUpdates returns and clears the list of voters added since the last
// call, for consumers that poll incrementally (e.g. an RPC subscription).
func (t *SlotVoteTracker) DrainUpdates() []types.VoterKey {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.updatesSinceLastFetch) == 0 {
		return nil
	}
	out := t.updatesSinceLastFetch
	t.updatesSinceLastFetch = nil
	return out
}
