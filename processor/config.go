package processor

import (
	"fmt"
	"time"
)

// Config configures the Processor thread.
type Config struct {
	// DuplicateThreshold is the weaker of the two staked-weight fractions
	// checked per (slot, hash); crossing it publishes on the
	// duplicate-confirmed bus.
	DuplicateThreshold float64
	// VoteThreshold is the optimistic-confirmation bound; crossing it
	// publishes an OptimisticallyConfirmed bank notification.
	VoteThreshold float64
	// RootProgressInterval is the minimum time between successive
	// verify_for_unrooted / advance_to_root passes (default-ms-per-slot).
	RootProgressInterval time.Duration
	// ListenConfirmBudget bounds how long listen-and-confirm waits for
	// either upstream channel to become ready before returning an empty
	// batch (default 200ms).
	ListenConfirmBudget time.Duration
	// MinWaitStep is the minimum amount of budget debited per spurious
	// wakeup in the listen-and-confirm inner loop.
	MinWaitStep time.Duration
}

// Thresholds in the fixed order add_to_hash expects:
// [DUPLICATE_THRESHOLD, VOTE_THRESHOLD].
func (c Config) Thresholds() []float64 {
	return []float64{c.DuplicateThreshold, c.VoteThreshold}
}

// DefaultConfig returns the default thread timings and thresholds:
// a 2/3 vote threshold, a 1/3 duplicate threshold, a 400ms
// root-progress interval (one slot time), and the 200ms
// listen-and-confirm wait budget.
func DefaultConfig() Config {
	return Config{
		DuplicateThreshold:   1.0 / 3.0,
		VoteThreshold:        2.0 / 3.0,
		RootProgressInterval: 400 * time.Millisecond,
		ListenConfirmBudget:  200 * time.Millisecond,
		MinWaitStep:          1 * time.Millisecond,
	}
}

// Validate rejects invalid threshold fractions, zero-or-negative
// durations, and an out-of-order threshold pair before the processor
// thread starts.
func (c Config) Validate() error {
	if c.DuplicateThreshold <= 0 || c.DuplicateThreshold >= 1 {
		return fmt.Errorf("processor: DuplicateThreshold must be in (0,1), got %v", c.DuplicateThreshold)
	}
	if c.VoteThreshold <= 0 || c.VoteThreshold >= 1 {
		return fmt.Errorf("processor: VoteThreshold must be in (0,1), got %v", c.VoteThreshold)
	}
	if c.DuplicateThreshold > c.VoteThreshold {
		return fmt.Errorf("processor: DuplicateThreshold (%v) must not exceed VoteThreshold (%v)", c.DuplicateThreshold, c.VoteThreshold)
	}
	if c.RootProgressInterval <= 0 {
		return fmt.Errorf("processor: RootProgressInterval must be > 0")
	}
	if c.ListenConfirmBudget <= 0 {
		return fmt.Errorf("processor: ListenConfirmBudget must be > 0")
	}
	if c.MinWaitStep <= 0 {
		return fmt.Errorf("processor: MinWaitStep must be > 0")
	}
	return nil
}
