package processor

import (
	"github.com/voteslistener/core/bank"
	"github.com/voteslistener/core/metrics"
	"github.com/voteslistener/core/types"
	"github.com/voteslistener/core/vote"
)

// taggedVote is one parsed vote awaiting state-update processing, tagged
// with its origin bit.
type taggedVote struct {
	voterKey types.VoterKey
	v        vote.Vote
	isGossip bool
}

// filterAndConfirm is the core state update: it parses and
// authorization-filters the gossip batch, concatenates it ahead of the
// (already-validated) replay batch, and folds every resulting vote into the
// vote tracker, emitting threshold-crossing events as it goes. It returns
// the (slot, hash) pairs that crossed the optimistic threshold during this
// call, for the caller to append to the confirmation verifier's journal.
func (p *Processor) filterAndConfirm(gossipBatch []*vote.SignedVoteTransaction, replayBatch []vote.ReplayVote, root bank.RootBank) []vote.SlotHash {
	entries := make([]taggedVote, 0, len(gossipBatch)+len(replayBatch))

	for _, tx := range gossipBatch {
		voterKey, v, _, ok := vote.ParseVote(tx)
		if !ok {
			metrics.ProcessorMalformedVotes.Inc()
			continue
		}
		authorized, ok := p.tr.AuthorizedVoterFor(voterKey, v.Tip(), root)
		if !ok || !tx.SignedBy(authorized) {
			metrics.ProcessorAuthorizationRejected.Inc()
			continue
		}
		entries = append(entries, taggedVote{voterKey: voterKey, v: v, isGossip: true})
	}
	for _, r := range replayBatch {
		entries = append(entries, taggedVote{voterKey: r.VoterKey, v: r.Vote, isGossip: false})
	}

	diff := make(map[types.Slot]map[types.VoterKey]bool)
	var newOptimistic []vote.SlotHash

	for _, e := range entries {
		metrics.ProcessorVotesProcessed.Inc()
		if p.processOneVote(e, root, diff) {
			newOptimistic = append(newOptimistic, p.onNewVote(e)...)
		}
	}

	p.foldDiff(diff, root)
	return newOptimistic
}

// processOneVote walks one tagged vote's slots greater than root, in
// reverse order, updating optimistic-confirmation state and the diff
// scratch map. It returns whether the tip slot's AddToHash call reported
// wasNewlyAdded -- the gate vote-notified/verified-vote publication hangs
// on -- not whether any slot merely had a resolvable epoch;
// if the tip's epoch can't be resolved at all, this reports false. Any
// VOTE_THRESHOLD crossings it caused are appended onto p.pendingOptimistic,
// drained by the side channel in onNewVote.
func (p *Processor) processOneVote(e taggedVote, root bank.RootBank, diff map[types.Slot]map[types.VoterKey]bool) bool {
	if len(e.v.Slots) == 0 {
		return false
	}
	tip := e.v.Tip()
	rootSlot := root.Slot()

	reversed := reverseSlotsAboveRoot(e.v.Slots, rootSlot)

	isNewVote := false
	for _, slot := range reversed {
		epoch := root.EpochForSlot(slot)
		stakes, ok := root.EpochStakes(epoch)
		if !ok {
			continue
		}

		if slot == tip {
			stake := stakes.Stake(e.voterKey)
			slotTracker := p.tr.EnsureSlot(slot)
			crossed, wasNewlyAdded := slotTracker.AddToHash(e.v.Hash, e.voterKey, stake, stakes.TotalStake, p.cfg.Thresholds())
			isNewVote = wasNewlyAdded

			if e.isGossip && wasNewlyAdded && stake > 0 {
				p.buses.GossipVoteHash.Send(vote.GossipVoteHash{VoterKey: e.voterKey, Slot: tip, Hash: e.v.Hash})
			}
			if crossed[0] {
				metrics.ProcessorDuplicatesConfirmed.Inc()
				p.buses.DuplicateConfirmed.Send([]vote.SlotHash{{Slot: tip, Hash: e.v.Hash}})
			}
			if crossed[1] {
				metrics.ProcessorThresholdsCrossed.Inc()
				p.pendingOptimistic = append(p.pendingOptimistic, vote.SlotHash{Slot: tip, Hash: e.v.Hash})
				p.buses.BankNotification.Send(vote.BankNotification{Slot: tip})
			}
			if !wasNewlyAdded && !e.isGossip {
				metrics.ProcessorDuplicateVotes.Inc()
				recordDiff(diff, slot, e.voterKey, e.isGossip)
				break
			}
		}

		recordDiff(diff, slot, e.voterKey, e.isGossip)
	}
	return isNewVote
}

// onNewVote fires the vote-notified callback and the verified-vote bus
// publish for a vote whose tip slot was newly added to its (slot, hash)
// stake tracker, and drains any VOTE_THRESHOLD crossings processOneVote
// recorded on p.pendingOptimistic while processing it.
func (p *Processor) onNewVote(e taggedVote) []vote.SlotHash {
	if p.notify != nil {
		p.notify.NotifyVote(e.v)
	}
	p.buses.VerifiedVote.Send(vote.VerifiedVote{VoterKey: e.voterKey, Slots: e.v.Slots})

	out := p.pendingOptimistic
	p.pendingOptimistic = nil
	return out
}

// foldDiff folds the batch-scratch diff map into the vote tracker, the
// final step of a batch: for each slot with a tracker (created if absent),
// surviving entries -- genuinely new voters, or voters previously seen only
// via replay whose current observation is via gossip -- get their stake
// added to gossip_only_stake (if the surviving observation is via gossip)
// and their voted[] entry updated.
func (p *Processor) foldDiff(diff map[types.Slot]map[types.VoterKey]bool, root bank.RootBank) {
	for slot, voters := range diff {
		slotTracker := p.tr.EnsureSlot(slot)
		epoch := root.EpochForSlot(slot)
		stakes, haveStakes := root.EpochStakes(epoch)

		for voterKey, isGossipNow := range voters {
			var stake uint64
			if isGossipNow && haveStakes {
				stake = stakes.Stake(voterKey)
			}
			slotTracker.NoteVoter(voterKey, isGossipNow, stake)
		}
	}
}

// recordDiff merges isGossip into diff[slot][voterKey] with OR semantics:
// once true (a gossip sighting), a later replay observation in the same
// batch never downgrades it back to false.
func recordDiff(diff map[types.Slot]map[types.VoterKey]bool, slot types.Slot, voterKey types.VoterKey, isGossip bool) {
	m, ok := diff[slot]
	if !ok {
		m = make(map[types.VoterKey]bool)
		diff[slot] = m
	}
	m[voterKey] = m[voterKey] || isGossip
}

// reverseSlotsAboveRoot returns the slots in v greater than root, in
// descending order, without assuming the input slice is sorted.
func reverseSlotsAboveRoot(slots []types.Slot, root types.Slot) []types.Slot {
	filtered := make([]types.Slot, 0, len(slots))
	for _, s := range slots {
		if s > root {
			filtered = append(filtered, s)
		}
	}
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	return filtered
}
