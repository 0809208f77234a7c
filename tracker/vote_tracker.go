package tracker

import (
	"errors"
	"sync"

	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/types"
)

// ErrUnknownEpoch names the condition of an epoch whose authorized-voter map
// has not been installed from the root bank. No function in this package
// returns it; AuthorizedVoterFor reports that condition with ok=false.
var ErrUnknownEpoch = errors.New("tracker: unknown epoch")

// VoteTracker is the process-singleton vote registry: a map from slot to
// SlotVoteTracker, the epoch-keyed authorized-voter registry, and the
// epoch-rotation bookkeeping AdvanceToRoot performs as the root moves
// forward. It is constructed once at validator bootstrap from the root bank
// and threaded through the three pipeline threads as a shared handle —
// never accessed as a package-level global.
type VoteTracker struct {
	mu    sync.RWMutex
	slots map[types.Slot]*SlotVoteTracker

	// epochAuthorized maps epoch -> (voter account -> authorized voter).
	epochAuthorized map[types.Epoch]map[types.VoterKey]types.VoterKey

	leaderScheduleEpoch types.Epoch
	currentEpoch        types.Epoch
}

// NewVoteTracker returns an empty VoteTracker.
func NewVoteTracker() *VoteTracker {
	return &VoteTracker{
		slots:           make(map[types.Slot]*SlotVoteTracker),
		epochAuthorized: make(map[types.Epoch]map[types.VoterKey]types.VoterKey),
	}
}

// EnsureSlot returns the SlotVoteTracker for slot, creating it lazily on
// first observation.
func (vt *VoteTracker) EnsureSlot(slot types.Slot) *SlotVoteTracker {
	vt.mu.RLock()
	t, ok := vt.slots[slot]
	vt.mu.RUnlock()
	if ok {
		return t
	}

	vt.mu.Lock()
	defer vt.mu.Unlock()
	if t, ok = vt.slots[slot]; ok {
		return t
	}
	t = NewSlotVoteTracker()
	vt.slots[slot] = t
	return t
}

// Slot returns the SlotVoteTracker for slot without creating it, or nil if
// the slot has never been observed.
func (vt *VoteTracker) Slot(slot types.Slot) *SlotVoteTracker {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return vt.slots[slot]
}

// SlotCount returns the number of slots currently tracked, for metrics.
func (vt *VoteTracker) SlotCount() int {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return len(vt.slots)
}

// EpochCount returns the number of epochs with a resolved authorized-voter
// map, for metrics.
func (vt *VoteTracker) EpochCount() int {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return len(vt.epochAuthorized)
}

// TotalGossipOnlyStake sums gossip-only stake across every currently
// tracked slot, for metrics. A purged slot's gossip-only stake is simply
// dropped from this sum along with the rest of its SlotVoteTracker, never
// decremented in place.
func (vt *VoteTracker) TotalGossipOnlyStake() uint64 {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	var total uint64
	for _, t := range vt.slots {
		total += t.GossipOnlyStake()
	}
	return total
}

// AuthorizedVoterFor returns the authorized key for voterKey in the epoch
// that contains slot. ok is false if the epoch is not yet known.
func (vt *VoteTracker) AuthorizedVoterFor(voterKey types.VoterKey, slot types.Slot, root bank.RootBank) (authorized types.VoterKey, ok bool) {
	epoch := root.EpochForSlot(slot)

	vt.mu.RLock()
	defer vt.mu.RUnlock()
	m, ok := vt.epochAuthorized[epoch]
	if !ok {
		return types.VoterKey{}, false
	}
	authorized, ok = m[voterKey]
	return authorized, ok
}

// installEpoch records the authorized-voter map for epoch if not already
// present. Returns true if it was newly installed.
func (vt *VoteTracker) installEpoch(epoch types.Epoch, stakes bank.EpochStakes) bool {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	if _, ok := vt.epochAuthorized[epoch]; ok {
		return false
	}
	m := make(map[types.VoterKey]types.VoterKey, len(stakes.AuthorizedVoters))
	for k, v := range stakes.AuthorizedVoters {
		m[k] = v
	}
	vt.epochAuthorized[epoch] = m
	return true
}

// AdvanceToRoot applies root progress to the registry:
//  1. Install the authorized-voter map for every leader-schedule epoch in
//     [leader_schedule_epoch, leader_schedule_epoch_of(root)] not yet known.
//  2. Raise leader_schedule_epoch to the highest epoch observed.
//  3. Drop every SlotVoteTracker with slot < root.
//  4. If epoch_of(root) > current_epoch, drop every epoch_authorized entry
//     older than epoch_of(root) and raise current_epoch.
func (vt *VoteTracker) AdvanceToRoot(root bank.RootBank) {
	rootSlot := root.Slot()
	targetLeaderEpoch := root.GetLeaderScheduleEpoch(rootSlot)

	vt.mu.RLock()
	start := vt.leaderScheduleEpoch
	vt.mu.RUnlock()

	for e := start; e <= targetLeaderEpoch; e++ {
		vt.mu.RLock()
		_, known := vt.epochAuthorized[e]
		vt.mu.RUnlock()
		if known {
			continue
		}
		stakes, ok := root.EpochStakes(e)
		if !ok {
			continue
		}
		vt.installEpoch(e, stakes)
	}

	vt.mu.Lock()
	if targetLeaderEpoch > vt.leaderScheduleEpoch {
		vt.leaderScheduleEpoch = targetLeaderEpoch
	}
	for slot := range vt.slots {
		if slot < rootSlot {
			delete(vt.slots, slot)
		}
	}
	rootEpoch := root.EpochForSlot(rootSlot)
	if rootEpoch > vt.currentEpoch {
		for e := range vt.epochAuthorized {
			if e < rootEpoch {
				delete(vt.epochAuthorized, e)
			}
		}
		vt.currentEpoch = rootEpoch
	}
	vt.mu.Unlock()
}

// LeaderScheduleEpoch returns the highest leader-schedule epoch observed by
// AdvanceToRoot. It is raised even when the root bank had no stakes for
// that epoch, so its authorized-voter map may not be installed.
func (vt *VoteTracker) LeaderScheduleEpoch() types.Epoch {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return vt.leaderScheduleEpoch
}

// CurrentEpoch returns the highest epoch the root has crossed into.
func (vt *VoteTracker) CurrentEpoch() types.Epoch {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return vt.currentEpoch
}
