package vote

import "github.com/voteslistener/core/types"

// ReplayVote is the shape replay votes arrive in on the replay channel: a
// triple of voter key, Vote, and optional switch-proof hash. Unlike gossip
// transactions, replay votes bypass ParseVote and the authorization filter
// entirely — the replay pipeline has already validated them.
type ReplayVote struct {
	VoterKey        types.VoterKey
	Vote            Vote
	SwitchProofHash *types.Hash
}

// Packet is the opaque wire unit the signature verifier produces alongside
// each gossip vote transaction: the raw transaction plus a Discard flag the
// verifier sets for entries that failed verification. The packet-forwarder
// thread only ever forwards packets with Discard == false.
type Packet struct {
	Signature   types.Signature
	Transaction *SignedVoteTransaction
	Discard     bool
}

// VerifiedVote is published on the verified-vote bus once per Vote
// that contributed new information, regardless of origin.
type VerifiedVote struct {
	VoterKey types.VoterKey
	Slots    []types.Slot
}

// GossipVoteHash is published on the gossip-verified-vote-hash bus when a
// gossip vote with nonzero stake newly adds its voter to the tip slot's
// (slot, hash) tally. A gossip vote whose voter was already tallied there
// by replay publishes nothing.
type GossipVoteHash struct {
	VoterKey types.VoterKey
	Slot     types.Slot
	Hash     types.Hash
}

// SlotHash identifies one (slot, hash) pair, used by the duplicate-confirmed
// bus and the optimistic-confirmation journal.
type SlotHash struct {
	Slot types.Slot
	Hash types.Hash
}

// BankNotification is published on the bank-notification bus when the
// optimistic-confirmation threshold crosses for a (slot, hash) pair.
// Finalization and rooting happen elsewhere in the validator, so
// optimistically-confirmed is the only notification this bus ever carries.
type BankNotification struct {
	Slot types.Slot
}
