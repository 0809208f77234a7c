package metrics

import (
	"math"
	"sync"
	"sync/atomic"
)

// tickSeconds is the fixed interval, in seconds, at which an EWMA expects
// Tick to be called to decay its rate. Vote and packet-forward throughput
// are bursty on a sub-second basis, so meters built on this tick smooth
// over a handful of processor/forwarder ticks rather than reacting to any
// single one.
const tickSeconds = 5.0

// EWMA implements an exponentially weighted moving average, the same
// load-average-style smoothing Unix uses for process scheduling, applied
// here to vote-ingestion and packet-forwarding throughput.
// It is safe for concurrent use.
type EWMA struct {
	alpha     float64
	uncounted atomic.Int64
	mu        sync.Mutex
	rate      float64
	init      bool
	interval  float64 // tick interval in seconds
}

// StandardEWMA creates a new EWMA with the given alpha decay factor and the
// package's standard tick interval.
func StandardEWMA(alpha float64) *EWMA {
	return &EWMA{
		alpha:    alpha,
		interval: tickSeconds,
	}
}

// NewEWMA1 creates a 1-minute EWMA (alpha = 1 - exp(-tickSeconds/60s)).
func NewEWMA1() *EWMA {
	return StandardEWMA(1 - math.Exp(-tickSeconds/60.0))
}

// NewEWMA5 creates a 5-minute EWMA (alpha = 1 - exp(-tickSeconds/300s)).
func NewEWMA5() *EWMA {
	return StandardEWMA(1 - math.Exp(-tickSeconds/300.0))
}

// NewEWMA15 creates a 15-minute EWMA (alpha = 1 - exp(-tickSeconds/900s)).
func NewEWMA15() *EWMA {
	return StandardEWMA(1 - math.Exp(-tickSeconds/900.0))
}

// Update adds n samples to the uncounted total.
func (e *EWMA) Update(n int64) {
	e.uncounted.Add(n)
}

// Tick decays the rate and incorporates uncounted samples.
// It should be called at regular intervals (every 5 seconds by default).
func (e *EWMA) Tick() {
	count := e.uncounted.Swap(0)
	instantRate := float64(count) / e.interval

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.init {
		e.rate += e.alpha * (instantRate - e.rate)
	} else {
		e.rate = instantRate
		e.init = true
	}
}

// Rate returns the current rate per second.
func (e *EWMA) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}
