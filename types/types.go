// Package types defines the value types shared across the vote-listening
// core: slots, epochs, block hashes, voter keys, and signatures.
package types

import (
	"encoding/hex"
	"fmt"
)

const (
	HashLength      = 32
	VoterKeyLength  = 32
	SignatureLength = 64
)

// Slot identifies a position in the ledger's slot sequence.
type Slot uint64

// Epoch identifies a fixed range of consecutive slots over which the stake
// distribution and authorized-voter map are immutable.
type Epoch uint64

// Hash represents the 32-byte block hash of a slot.
type Hash [HashLength]byte

// VoterKey is the 32-byte ed25519 public key of a vote account.
type VoterKey [VoterKeyLength]byte

// Signature is a 64-byte ed25519 signature.
type Signature [SignatureLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool { return h == Hash{} }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// BytesToVoterKey converts bytes to a VoterKey, left-padding if shorter than
// 32 bytes.
func BytesToVoterKey(b []byte) VoterKey {
	var k VoterKey
	k.SetBytes(b)
	return k
}

// Bytes returns the byte representation of the voter key.
func (k VoterKey) Bytes() []byte { return k[:] }

// Hex returns the hex string representation of the voter key.
func (k VoterKey) Hex() string { return fmt.Sprintf("0x%x", k[:]) }

// SetBytes sets the voter key from a byte slice.
func (k *VoterKey) SetBytes(b []byte) {
	if len(b) > VoterKeyLength {
		b = b[len(b)-VoterKeyLength:]
	}
	copy(k[VoterKeyLength-len(b):], b)
}

// IsZero returns whether the voter key is all zeros.
func (k VoterKey) IsZero() bool { return k == VoterKey{} }

// String implements fmt.Stringer.
func (k VoterKey) String() string { return k.Hex() }

// BytesToSignature converts bytes to a Signature. The length is not checked:
// shorter input leaves the trailing bytes zero, and bytes past the 64th are
// ignored.
func BytesToSignature(b []byte) Signature {
	var s Signature
	copy(s[:], b)
	return s
}

// Bytes returns the byte representation of the signature.
func (s Signature) Bytes() []byte { return s[:] }

// fromHex decodes a hex string, stripping an optional "0x" prefix.
func fromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
