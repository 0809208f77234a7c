package forwarder

import (
	"fmt"
	"time"
)

// Config configures the packet-forwarder thread.
type Config struct {
	// ForwardThrottle is the tick interval at which buffered packets are
	// routed to the current leader bank (default 10ms).
	ForwardThrottle time.Duration
	// Horizon is the number of slots ahead of which the local node must be
	// near leadership before packet buffering begins (would_be_leader).
	Horizon int
}

// DefaultConfig returns the default 10ms forward throttle and a two-slot
// leadership horizon.
func DefaultConfig() Config {
	return Config{
		ForwardThrottle: 10 * time.Millisecond,
		Horizon:         2,
	}
}

// Validate rejects a zero-or-negative throttle interval or a negative
// horizon.
func (c Config) Validate() error {
	if c.ForwardThrottle <= 0 {
		return fmt.Errorf("forwarder: ForwardThrottle must be > 0")
	}
	if c.Horizon < 0 {
		return fmt.Errorf("forwarder: Horizon must be >= 0")
	}
	return nil
}
