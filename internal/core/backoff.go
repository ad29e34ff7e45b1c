package core

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/xonecas/relic-console/internal/constants"
)

// Backoff configures the reconnect schedule.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64 // Fraction of the delay, applied as ±Jitter
}

// DefaultBackoff returns the stock reconnect schedule.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: constants.BackoffInitial,
		Max:     constants.BackoffMax,
		Factor:  constants.BackoffFactor,
		Jitter:  constants.BackoffJitter,
	}
}

// Schedule builds a fresh exponential schedule from b. Zero fields fall back
// to the defaults. The schedule never expires on its own; callers bound it
// with backoff.WithMaxRetries or backoff.WithContext.
func (b Backoff) Schedule() *backoff.ExponentialBackOff {
	initial, ceiling, factor := b.Initial, b.Max, b.Factor
	if initial <= 0 {
		initial = constants.BackoffInitial
	}
	if ceiling <= 0 {
		ceiling = constants.BackoffMax
	}
	if ceiling < initial {
		ceiling = initial
	}
	if factor < 1 {
		factor = constants.BackoffFactor
	}

	jitter := b.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}

	s := backoff.NewExponentialBackOff()
	s.InitialInterval = initial
	s.MaxInterval = ceiling
	s.Multiplier = factor
	s.RandomizationFactor = jitter
	s.MaxElapsedTime = 0
	s.Reset()
	return s
}
