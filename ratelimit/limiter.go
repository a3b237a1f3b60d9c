// Package ratelimit implements a sliding-window attempt limiter keyed by
// an arbitrary string.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultWindow      = time.Minute
	DefaultMaxAttempts = 5
)

// Limiter admits at most maxAttempts per key within any trailing window.
// Rejected attempts are not recorded.
type Limiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxAttempts int
	attempts    map[string][]time.Time
	nowTime     func() time.Time
}

type Option func(*Limiter)

func WithNowTime(nowFunc func() time.Time) Option {
	return func(l *Limiter) {
		l.nowTime = nowFunc
	}
}

func New(window time.Duration, maxAttempts int, options ...Option) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	l := &Limiter{
		window:      window,
		maxAttempts: maxAttempts,
		attempts:    make(map[string][]time.Time),
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Allow records an attempt for key and reports whether it is admitted.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowTime()
	recent := l.prune(key, now)
	if len(recent) >= l.maxAttempts {
		return false
	}
	l.attempts[key] = append(recent, now)
	return true
}

// Remaining is the number of attempts key may still make right now.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxAttempts - len(l.prune(key, l.nowTime()))
}

// Reset forgets every recorded attempt.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = make(map[string][]time.Time)
}

// prune drops attempts older than the window. Caller holds mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	times := l.attempts[key]
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	recent := times[i:]
	if len(recent) == 0 {
		delete(l.attempts, key)
		return nil
	}
	l.attempts[key] = recent
	return recent
}
