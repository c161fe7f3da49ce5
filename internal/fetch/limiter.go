package fetch

import (
	"context"
	"sync"
	"time"
)

// Limiter is a rolling minimum-gap throttle keyed by upstream. Each call waits
// max(0, gap - (now - lastCall)); no burst credit accumulates.
type Limiter struct {
	mu     sync.Mutex
	minGap time.Duration
	gaps   map[string]time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

// NewLimiter creates a limiter applying minGap to every key without an
// explicit override.
func NewLimiter(minGap time.Duration) *Limiter {
	return &Limiter{
		minGap: minGap,
		gaps:   make(map[string]time.Duration),
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// SetGap overrides the minimum gap for one key.
func (l *Limiter) SetGap(key string, gap time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gaps[key] = gap
}

// Wait blocks until a call on key may proceed, or ctx is done. The slot is
// reserved before sleeping so concurrent callers queue behind each other; a
// cancelled waiter gives its slot back if nobody queued behind it.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	now := l.now()
	gap := l.minGap
	if g, ok := l.gaps[key]; ok {
		gap = g
	}

	next := now
	prev, hadPrev := l.last[key]
	if hadPrev {
		if earliest := prev.Add(gap); earliest.After(now) {
			next = earliest
		}
	}
	l.last[key] = next
	l.mu.Unlock()

	wait := next.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		l.release(key, next, prev, hadPrev)
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) release(key string, reserved, prev time.Time, hadPrev bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.last[key].Equal(reserved) {
		return
	}
	if hadPrev {
		l.last[key] = prev
	} else {
		delete(l.last, key)
	}
}
