package jwks

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// fetchLimiter bounds remote JWKS fetches to a number per minute. The token
// bucket spreads refills over the minute and the log of recent fetch times
// caps any sliding minute at the configured count, which the bucket alone
// lets reach almost twice that.
type fetchLimiter struct {
	bucket *rate.Limiter
	window time.Duration

	mu     sync.Mutex
	recent []time.Time // ring of the last len(recent) fetch times
	next   int
}

func newFetchLimiter(requestsPerMinute int) *fetchLimiter {
	return &fetchLimiter{
		bucket: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
		window: time.Minute,
		recent: make([]time.Time, requestsPerMinute),
	}
}

// allow reports whether a fetch may start at now and records it if so.
func (l *fetchLimiter) allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if oldest := l.recent[l.next]; !oldest.IsZero() && now.Sub(oldest) < l.window {
		return false
	}
	if !l.bucket.AllowN(now, 1) {
		return false
	}

	l.recent[l.next] = now
	l.next = (l.next + 1) % len(l.recent)
	return true
}

// limit returns the number of fetches allowed per minute.
func (l *fetchLimiter) limit() int {
	return len(l.recent)
}
