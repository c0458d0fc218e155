package exchange

import (
	"math/rand/v2"
	"time"
)

// retryDelays are the base backoff delays between lookup attempts.
var retryDelays = [...]time.Duration{
	250 * time.Millisecond,
	1 * time.Second,
}

const (
	// DefaultMaxAttempts is the number of requests per lookup.
	DefaultMaxAttempts = len(retryDelays) + 1

	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2
)

// NextRetryDelay returns the backoff before retry attemptCount (0-indexed)
// with ±20% jitter.
func NextRetryDelay(attemptCount int) time.Duration {
	if attemptCount < 0 {
		attemptCount = 0
	}
	if attemptCount >= len(retryDelays) {
		attemptCount = len(retryDelays) - 1
	}

	base := retryDelays[attemptCount]
	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}
