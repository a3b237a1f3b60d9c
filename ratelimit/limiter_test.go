package ratelimit_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/trivia-director/ratelimit"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestLimiter_SlidingWindow(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)}
	l := ratelimit.New(time.Minute, 5, ratelimit.WithNowTime(c.Now))

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("login"), "attempt %d", i+1)
		c.Advance(time.Second)
	}
	require.False(t, l.Allow("login"), "sixth attempt inside the window")
	require.Equal(t, 0, l.Remaining("login"))
	require.True(t, l.Allow("register"), "keys are independent")

	// first attempt was at t0; at t0+60s+1ns it has slid out
	c.now = time.Date(2026, 1, 10, 18, 1, 0, 1, time.UTC)
	require.Equal(t, 1, l.Remaining("login"))
	require.True(t, l.Allow("login"))
	require.False(t, l.Allow("login"))
}

func TestLimiter_RejectedAttemptsNotRecorded(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)}
	l := ratelimit.New(time.Minute, 2, ratelimit.WithNowTime(c.Now))

	require.True(t, l.Allow("k"))
	require.True(t, l.Allow("k"))
	for i := 0; i < 10; i++ {
		c.Advance(time.Second)
		require.False(t, l.Allow("k"))
	}
	c.Advance(time.Minute - 10*time.Second + time.Millisecond)
	require.True(t, l.Allow("k"))
}

func TestLimiter_Reset(t *testing.T) {
	l := ratelimit.New(time.Minute, 1)
	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))
	l.Reset()
	require.True(t, l.Allow("k"))
}
