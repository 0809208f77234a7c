package vote

import (
	"testing"

	"github.com/voteslistener/core/types"
)

func TestParseVote_RejectsNil(t *testing.T) {
	_, _, _, ok := ParseVote(nil)
	if ok {
		t.Fatal("expected nil transaction to fail parsing")
	}
}

func TestParseVote_RejectsEmptySlots(t *testing.T) {
	tx := &SignedVoteTransaction{
		VoteAccount: types.VoterKey{1},
		Slots:       nil,
		Signers:     []SignedBy{{PublicKey: types.VoterKey{1}}},
	}
	_, _, _, ok := ParseVote(tx)
	if ok {
		t.Fatal("expected empty slot list to fail parsing")
	}
}

func TestParseVote_RejectsNoSigners(t *testing.T) {
	tx := &SignedVoteTransaction{
		VoteAccount: types.VoterKey{1},
		Slots:       []types.Slot{1, 2},
	}
	_, _, _, ok := ParseVote(tx)
	if ok {
		t.Fatal("expected transaction with no signers to fail parsing")
	}
}

func TestParseVote_Success(t *testing.T) {
	voter := types.VoterKey{9}
	switchHash := types.Hash{5}
	tx := &SignedVoteTransaction{
		VoteAccount:     voter,
		Slots:           []types.Slot{3, 4, 5},
		Hash:            types.Hash{0xAB},
		SwitchProofHash: &switchHash,
		Signers:         []SignedBy{{PublicKey: voter, Signature: types.Signature{1}}},
	}

	gotVoter, v, gotSwitch, ok := ParseVote(tx)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if gotVoter != voter {
		t.Fatalf("voter key: got %x, want %x", gotVoter, voter)
	}
	if v.Tip() != 5 {
		t.Fatalf("tip: got %d, want 5", v.Tip())
	}
	if gotSwitch == nil || *gotSwitch != switchHash {
		t.Fatalf("switch proof hash mismatch: got %v", gotSwitch)
	}
}

func TestParseVote_CopiesSlotSlice(t *testing.T) {
	tx := &SignedVoteTransaction{
		VoteAccount: types.VoterKey{1},
		Slots:       []types.Slot{1, 2},
		Signers:     []SignedBy{{PublicKey: types.VoterKey{1}}},
	}
	_, v, _, ok := ParseVote(tx)
	if !ok {
		t.Fatal("expected successful parse")
	}
	tx.Slots[0] = 99
	if v.Slots[0] == 99 {
		t.Fatal("Vote.Slots should not alias the input transaction's slice")
	}
}

func TestSignedVoteTransaction_SignedBy(t *testing.T) {
	authorized := types.VoterKey{7}
	other := types.VoterKey{8}
	tx := &SignedVoteTransaction{
		Signers: []SignedBy{{PublicKey: other}},
	}
	if tx.SignedBy(authorized) {
		t.Fatal("expected no match for a key that did not sign")
	}
	tx.Signers = append(tx.Signers, SignedBy{PublicKey: authorized})
	if !tx.SignedBy(authorized) {
		t.Fatal("expected match once the authorized key is among the signers")
	}
}

func TestComputeDigest_Deterministic(t *testing.T) {
	v := Vote{VoteAccount: types.VoterKey{1}, Slots: []types.Slot{1, 2, 3}, Hash: types.Hash{9}}
	d1 := ComputeDigest(v)
	d2 := ComputeDigest(v)
	if d1 != d2 {
		t.Fatal("ComputeDigest should be deterministic for the same Vote")
	}
}

func TestComputeDigest_DiffersOnHashChange(t *testing.T) {
	v1 := Vote{VoteAccount: types.VoterKey{1}, Slots: []types.Slot{1, 2}, Hash: types.Hash{9}}
	v2 := v1
	v2.Hash = types.Hash{10}
	if ComputeDigest(v1) == ComputeDigest(v2) {
		t.Fatal("expected different digests for different tip hashes")
	}
}
