package listener

import (
	"fmt"
	"time"

	"github.com/voteslistener/core/crypto"
)

// Config configures the Listener thread.
type Config struct {
	// GossipSleep is the pause between gossip poll ticks.
	GossipSleep time.Duration
	// Verifier configures the batch signature verifier.
	Verifier *crypto.BatchVerifierConfig
}

// DefaultConfig returns the default gossip poll sleep and batch verifier
// settings.
func DefaultConfig() Config {
	return Config{
		GossipSleep: 10 * time.Millisecond,
		Verifier:    crypto.DefaultBatchVerifierConfig(),
	}
}

// Validate rejects a zero-or-negative gossip sleep.
func (c Config) Validate() error {
	if c.GossipSleep <= 0 {
		return fmt.Errorf("listener: GossipSleep must be > 0")
	}
	return nil
}
