// Package bank declares the external collaborator contracts the
// vote-listening core reads from: a handle onto the root bank (ledger
// state as of the highest finalized slot) and a handle onto whichever bank
// the local leader is currently producing. Neither is implemented here —
// on-disk ledger storage, the replay executor, and the leader scheduler are
// owned by the surrounding validator.
package bank

import "github.com/voteslistener/core/types"

// VoteAccountStake is the stake and metadata associated with one vote
// account as of a particular epoch.
type VoteAccountStake struct {
	Stake uint64
}

// EpochStakes is the stake distribution and authorized-voter map for one
// epoch, as read from the root bank. Immutable once returned.
type EpochStakes struct {
	// AuthorizedVoters maps a vote account to the one keypair whose
	// signature on a vote is accepted for that account in this epoch.
	AuthorizedVoters map[types.VoterKey]types.VoterKey
	// VoteAccounts maps a vote account to its stake in this epoch.
	VoteAccounts map[types.VoterKey]VoteAccountStake
	TotalStake   uint64
}

// Stake returns the stake of voteAccount in this epoch, or 0 if the account
// is unknown.
func (e EpochStakes) Stake(voteAccount types.VoterKey) uint64 {
	if e.VoteAccounts == nil {
		return 0
	}
	return e.VoteAccounts[voteAccount].Stake
}

// RootBank is the read-only view of ledger state as of the highest locally
// finalized (rooted) slot.
type RootBank interface {
	Slot() types.Slot
	Epoch() types.Epoch
	// EpochForSlot maps a slot to its epoch under this bank's epoch
	// schedule.
	EpochForSlot(slot types.Slot) types.Epoch
	// EpochStakes returns the stake distribution for an epoch. ok is false
	// if the epoch is not yet known to the root bank.
	EpochStakes(epoch types.Epoch) (stakes EpochStakes, ok bool)
	// GetLeaderScheduleEpoch returns the epoch whose leader schedule is
	// derived as of slot.
	GetLeaderScheduleEpoch(slot types.Slot) types.Epoch
}

// LeaderBank is the bank currently being produced by the local leader, if
// any. The packet-forwarder thread forwards verified vote packets to it.
type LeaderBank interface {
	Slot() types.Slot
	// WouldBeLeader reports whether the local node is within horizon slots
	// of producing a bank, used to gate packet buffering.
	WouldBeLeader(horizon int) bool
	// Ingest hands one validator's verified vote packets to this bank's
	// packet-ingest pipeline, as a single atomic message.
	Ingest(voterKey types.VoterKey, raw [][]byte)
}

// Ledger is the collaborator the confirmation verifier reads at each root
// advance: read access to the rooted ancestor chain, used to decide whether
// a locally observed optimistic confirmation was actually subsumed by the
// new root or abandoned on a fork that never got rooted.
type Ledger interface {
	// AncestorHash returns the block hash of the rooted ancestor at slot,
	// as of the current root. ok is false if slot predates what the ledger
	// retains.
	AncestorHash(slot types.Slot) (hash types.Hash, ok bool)
}
