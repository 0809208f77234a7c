// Package vote holds the Vote data model and the pure vote-transaction
// parser, plus the event types the pipeline's buses carry.
package vote

import (
	"golang.org/x/crypto/blake2b"

	"github.com/voteslistener/core/types"
)

// SignedBy pairs a public key with the signature it produced over a vote
// transaction's message. A transaction may carry more than one signer (e.g.
// a fee payer alongside the vote authority); authorization only requires
// that one of them match the epoch's authorized voter.
type SignedBy struct {
	PublicKey types.VoterKey
	Signature types.Signature
}

// SignedVoteTransaction is the wire shape the gossip pipeline hands to
// ParseVote: a candidate vote transaction that has already passed (or is
// about to undergo) signature verification. Replay votes arrive as
// ReplayVote instead.
type SignedVoteTransaction struct {
	VoteAccount     types.VoterKey
	Slots           []types.Slot
	Hash            types.Hash
	SwitchProofHash *types.Hash
	Signers         []SignedBy
}

// Vote is an ordered non-empty sequence of slots plus the block hash of the
// last (tip) slot, as voted for by VoteAccount.
type Vote struct {
	VoteAccount types.VoterKey
	Slots       []types.Slot
	Hash        types.Hash
}

// Tip returns the largest slot in the Vote — the only slot eligible for
// optimistic-confirmation accounting.
func (v Vote) Tip() types.Slot {
	return v.Slots[len(v.Slots)-1]
}

// SignedBy reports whether any signer on the originating transaction used
// the given public key. ParseVote does not copy the signer list into the
// Vote, so callers run this check on the transaction they passed to it.
func (tx *SignedVoteTransaction) SignedBy(key types.VoterKey) bool {
	for _, s := range tx.Signers {
		if s.PublicKey == key {
			return true
		}
	}
	return false
}

// ParseVote extracts the voter key, Vote, and optional switch-proof hash
// from a signed vote transaction. It fails — returning ok=false — when the
// transaction is nil, carries no slots, or has no signers at all. Pure: no
// side effects, no network or lock access.
func ParseVote(tx *SignedVoteTransaction) (voterKey types.VoterKey, v Vote, switchProofHash *types.Hash, ok bool) {
	if tx == nil || len(tx.Slots) == 0 || len(tx.Signers) == 0 {
		return types.VoterKey{}, Vote{}, nil, false
	}

	slots := make([]types.Slot, len(tx.Slots))
	copy(slots, tx.Slots)

	v = Vote{
		VoteAccount: tx.VoteAccount,
		Slots:       slots,
		Hash:        tx.Hash,
	}
	return tx.VoteAccount, v, tx.SwitchProofHash, true
}

// ComputeDigest hashes a Vote's slot list and tip hash into the 32-byte
// message an authorized voter's signature covers.
func ComputeDigest(v Vote) [32]byte {
	h, _ := blake2b.New256(nil)
	for _, s := range v.Slots {
		var buf [8]byte
		putUint64(buf[:], uint64(s))
		h.Write(buf[:])
	}
	h.Write(v.Hash.Bytes())
	h.Write(v.VoteAccount.Bytes())

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
