package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiterMinuteWindow(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(2, 10, 0, true)
	rl.now = c.now

	assert.True(t, rl.AllowRequest())
	c.advance(10 * time.Second)
	assert.True(t, rl.AllowRequest())
	assert.False(t, rl.AllowRequest())
	assert.Equal(t, 50*time.Second, rl.RetryAfter())

	stats := rl.GetStats()
	assert.Equal(t, 2, stats.RequestsLastMinute)
	assert.Equal(t, 0, stats.RemainingThisMinute)
	assert.Equal(t, 8, stats.RemainingThisHour)

	c.advance(51 * time.Second)
	assert.True(t, rl.AllowRequest())
	assert.Equal(t, 3, rl.GetStats().RequestsLastHour)
}

func TestRateLimiterHourWindow(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(100, 3, 0, true)
	rl.now = c.now

	for i := 0; i < 3; i++ {
		assert.True(t, rl.AllowRequest())
		c.advance(2 * time.Minute)
	}
	assert.False(t, rl.AllowRequest())
	assert.Equal(t, 54*time.Minute, rl.RetryAfter())
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(1, 1, 1, false)
	for i := 0; i < 5; i++ {
		assert.True(t, rl.AllowRequest())
	}
	assert.Equal(t, Stats{}, rl.GetStats())
	assert.Zero(t, rl.RetryAfter())
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0, true)
	assert.True(t, rl.AllowRequest())
	assert.False(t, rl.AllowRequest())
	rl.Reset()
	assert.True(t, rl.AllowRequest())
}

func TestLoginThrottle(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	th := NewLoginThrottle(3, 5*time.Minute)
	th.now = c.now

	assert.False(t, th.Failure("1.2.3.4"))
	assert.False(t, th.Failure("1.2.3.4"))
	ok, _ := th.Allow("1.2.3.4")
	assert.True(t, ok)

	assert.True(t, th.Failure("1.2.3.4"))
	ok, wait := th.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 5*time.Minute, wait)

	other, _ := th.Allow("5.6.7.8")
	assert.True(t, other, "keys are independent")

	c.advance(5*time.Minute + time.Second)
	ok, _ = th.Allow("1.2.3.4")
	assert.True(t, ok)
	assert.Zero(t, th.State("1.2.3.4").FailureCount, "an expired lockout starts over")
}

func TestLoginThrottleSuccessClears(t *testing.T) {
	th := NewLoginThrottle(2, time.Minute)
	th.Failure("k")
	th.Success("k")
	assert.False(t, th.Failure("k"))
	assert.Equal(t, 1, th.State("k").FailureCount)
}

func TestLoginThrottlePrune(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	th := NewLoginThrottle(1, time.Minute)
	th.now = c.now

	th.Failure("locked")
	c.advance(30 * time.Second)
	th.Allow("idle")
	c.advance(2 * time.Hour)
	assert.Equal(t, 2, th.Prune(time.Hour))
}

func TestLoginThrottleDisabled(t *testing.T) {
	th := NewLoginThrottle(0, time.Minute)
	for i := 0; i < 10; i++ {
		assert.False(t, th.Failure("k"))
	}
	ok, _ := th.Allow("k")
	assert.True(t, ok)
}
