package delivery

import (
	"math/rand"
	"time"
)

// backoff is a jittered exponential backoff bounded by max.
type backoff struct {
	min, max time.Duration
	next     time.Duration
}

func newBackoff(min, max time.Duration) *backoff {
	if min <= 0 {
		min = 500 * time.Millisecond
	}
	if max < min {
		max = min
	}
	return &backoff{min: min, max: max, next: min}
}

// Next returns the wait before the next attempt and doubles the base.
func (b *backoff) Next() time.Duration {
	wait := b.next
	// 20% jitter.
	if j := int64(wait) / 5; j > 0 {
		wait += time.Duration(rand.Int63n(j + 1))
	}
	if wait > b.max {
		wait = b.max
	}

	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return wait
}

// Reset returns to the minimum wait.
func (b *backoff) Reset() {
	b.next = b.min
}
