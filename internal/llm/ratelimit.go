package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultRequestsPerMinute = 60

// rateLimiter throttles generated-reply API calls to a fixed number per
// minute, independently of the per-user response windows. Budget accrues
// continuously with elapsed time rather than on a refill ticker, so the
// limiter needs no background goroutine.
type rateLimiter struct {
	last     time.Time
	capacity float64
	level    float64
	perSec   float64
	mu       sync.Mutex
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}

	capacity := float64(requestsPerMinute)
	return &rateLimiter{
		capacity: capacity,
		level:    capacity,
		perSec:   capacity / 60,
		last:     time.Now(),
	}
}

// wait blocks until the limiter releases one call or the context ends.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		ok, retry := rl.take(time.Now())
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-time.After(retry):
		}
	}
}

// take credits the elapsed time and claims one call when the budget covers
// it. Otherwise it reports how long until the next call matures.
func (rl *rateLimiter) take(now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.level += now.Sub(rl.last).Seconds() * rl.perSec
	if rl.level > rl.capacity {
		rl.level = rl.capacity
	}
	rl.last = now

	if rl.level >= 1 {
		rl.level--
		return true, 0
	}

	shortfall := (1 - rl.level) / rl.perSec
	return false, time.Duration(shortfall * float64(time.Second))
}
