package vapid

import (
	"math/rand/v2"
	"time"
)

const maxBackoff = 30 * time.Second

// backoff returns the wait before retry number attempt (starting at 1):
// base doubled per attempt with up to 10% jitter, capped at maxBackoff.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}

	interval := base << (attempt - 1)
	if interval <= 0 || interval > maxBackoff {
		interval = maxBackoff
	}

	jitter := time.Duration((rand.Float64()*2 - 1) * 0.1 * float64(interval))
	return min(interval+jitter, maxBackoff)
}
