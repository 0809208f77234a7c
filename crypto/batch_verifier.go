// Batch ed25519 verification for gossip vote transactions.
//
// Splits each candidate batch into chunks, attempts a combined
// verification pass per chunk, and falls back to per-entry verification to
// identify which signatures are invalid. Unlike BLS, ed25519 has no
// pairing-based linear-combination shortcut, so the "batch" pass and the
// fallback pass both verify every entry individually; the value of
// chunking is that one forged signature only forces the index-collecting
// fallback over its own chunk, not the whole tick's batch.
package crypto

import (
	"crypto/ed25519"
	"sync/atomic"
)

// Batch verification constants.
const (
	// DefaultBatchVerifySize is the default chunk size.
	DefaultBatchVerifySize = 128

	// MinBatchSize is the minimum chunk size before the combined pass is
	// skipped in favor of going straight to individual verification.
	MinBatchSize = 4
)

// BatchVerifyEntry holds a single vote signature verification entry.
type BatchVerifyEntry struct {
	Pubkey    ed25519.PublicKey
	Message   []byte
	Signature []byte
}

// BatchVerifyResult contains the result of a batch verification.
type BatchVerifyResult struct {
	Valid        bool
	BatchSize    int
	InvalidIdxs  []int // indices of invalid signatures
	UsedFallback bool  // true if the combined pass failed and fallback ran
}

// VerifyFunc is a signature verification function. Returns true if sig is a
// valid ed25519 signature by pubkey over msg.
type VerifyFunc func(pubkey ed25519.PublicKey, msg, sig []byte) bool

// DefaultVerifyFunc verifies using the standard library ed25519 package.
func DefaultVerifyFunc(pubkey ed25519.PublicKey, msg, sig []byte) bool {
	if len(pubkey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubkey, msg, sig)
}

// BatchVerifierConfig configures the batch verifier.
type BatchVerifierConfig struct {
	BatchSize      int        // maximum entries per verification chunk
	EnableFallback bool       // verify individually when the combined pass fails
	VerifyFn       VerifyFunc // pluggable verification function (defaults to DefaultVerifyFunc)
}

// DefaultBatchVerifierConfig returns the default configuration.
func DefaultBatchVerifierConfig() *BatchVerifierConfig {
	return &BatchVerifierConfig{
		BatchSize:      DefaultBatchVerifySize,
		EnableFallback: true,
	}
}

// BatchVerifier performs batch ed25519 verification of gossip vote
// signatures. Thread-safe.
type BatchVerifier struct {
	config *BatchVerifierConfig

	// Metrics.
	totalVerified  atomic.Int64
	totalBatches   atomic.Int64
	totalFallbacks atomic.Int64
	totalFailed    atomic.Int64
}

// NewBatchVerifier creates a new batch verifier.
func NewBatchVerifier(cfg *BatchVerifierConfig) *BatchVerifier {
	if cfg == nil {
		cfg = DefaultBatchVerifierConfig()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchVerifySize
	}
	if cfg.VerifyFn == nil {
		cfg.VerifyFn = DefaultVerifyFunc
	}
	return &BatchVerifier{config: cfg}
}

// BatchVerify verifies entries, splitting them into chunks of at most
// BatchSize. InvalidIdxs are reported against the original slice. This is
// the entry point used by the Listener thread on each gossip tick's
// freshly-parsed batch.
func (bv *BatchVerifier) BatchVerify(entries []BatchVerifyEntry) *BatchVerifyResult {
	if len(entries) == 0 {
		return &BatchVerifyResult{Valid: true, BatchSize: 0}
	}
	size := bv.config.BatchSize
	if len(entries) <= size {
		return bv.verifyEntries(entries)
	}

	out := &BatchVerifyResult{Valid: true, BatchSize: len(entries)}
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		r := bv.verifyEntries(entries[start:end])
		if !r.Valid {
			out.Valid = false
		}
		if r.UsedFallback {
			out.UsedFallback = true
		}
		for _, idx := range r.InvalidIdxs {
			out.InvalidIdxs = append(out.InvalidIdxs, start+idx)
		}
	}
	return out
}

func (bv *BatchVerifier) verifyEntries(entries []BatchVerifyEntry) *BatchVerifyResult {
	bv.totalBatches.Add(1)
	bv.totalVerified.Add(int64(len(entries)))

	if len(entries) < MinBatchSize {
		return bv.individualVerify(entries)
	}

	if bv.combinedVerify(entries) {
		return &BatchVerifyResult{Valid: true, BatchSize: len(entries)}
	}

	if bv.config.EnableFallback {
		bv.totalFallbacks.Add(1)
		result := bv.individualVerify(entries)
		result.UsedFallback = true
		return result
	}

	bv.totalFailed.Add(int64(len(entries)))
	return &BatchVerifyResult{Valid: false, BatchSize: len(entries)}
}

// combinedVerify attempts to validate the whole batch in one pass. Every
// entry still gets an individual ed25519.Verify call; short-circuiting on
// the first failure is what separates this from individualVerify, which
// always walks the whole batch to report every invalid index.
func (bv *BatchVerifier) combinedVerify(entries []BatchVerifyEntry) bool {
	for _, entry := range entries {
		if !bv.config.VerifyFn(entry.Pubkey, entry.Message, entry.Signature) {
			return false
		}
	}
	return true
}

// individualVerify verifies each entry individually, collecting invalid
// indices.
func (bv *BatchVerifier) individualVerify(entries []BatchVerifyEntry) *BatchVerifyResult {
	var invalidIdxs []int
	for i, entry := range entries {
		if !bv.config.VerifyFn(entry.Pubkey, entry.Message, entry.Signature) {
			invalidIdxs = append(invalidIdxs, i)
		}
	}
	if len(invalidIdxs) > 0 {
		bv.totalFailed.Add(int64(len(invalidIdxs)))
	}
	return &BatchVerifyResult{
		Valid:       len(invalidIdxs) == 0,
		BatchSize:   len(entries),
		InvalidIdxs: invalidIdxs,
	}
}

// Metrics returns batch verifier counters: total entries verified, total
// batches run, total fallbacks taken, and total individual failures.
func (bv *BatchVerifier) Metrics() (verified, batches, fallbacks, failed int64) {
	return bv.totalVerified.Load(), bv.totalBatches.Load(), bv.totalFallbacks.Load(), bv.totalFailed.Load()
}
