package remote

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrUnavailable is returned without a request while the breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// Backoff produces growing reconnect delays for the change feed.
type Backoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
	attempt    int
}

// NewBackoff returns a backoff starting at 500ms and capped at 30s.
func NewBackoff() *Backoff {
	return &Backoff{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Next returns the delay before the next attempt.
func (b *Backoff) Next() time.Duration {
	delay := time.Duration(float64(b.BaseDelay) * math.Pow(b.Multiplier, float64(b.attempt)))
	if delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	if b.Jitter {
		spread := float64(delay) * 0.1
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	if delay < b.BaseDelay {
		delay = b.BaseDelay
	}
	b.attempt++
	return delay
}

// Reset starts over after a successful connection.
func (b *Backoff) Reset() { b.attempt = 0 }

// Attempts reports how many delays were handed out since the last Reset.
func (b *Backoff) Attempts() int { return b.attempt }

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker stops calling a backend that keeps failing at the transport
// level. Rejections reported inside the envelope do not count.
type breaker struct {
	mu           sync.Mutex
	maxFailures  int
	resetTimeout time.Duration
	failures     int
	lastFailure  time.Time
	state        breakerState
	now          func() time.Time
}

func newBreaker(maxFailures int, resetTimeout time.Duration) *breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &breaker{maxFailures: maxFailures, resetTimeout: resetTimeout, now: time.Now}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.lastFailure) > b.resetTimeout {
			b.state = breakerHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

func (b *breaker) success() {
	b.mu.Lock()
	b.failures = 0
	b.state = breakerClosed
	b.mu.Unlock()
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
	if b.failures >= b.maxFailures || b.state == breakerHalfOpen {
		b.state = breakerOpen
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
