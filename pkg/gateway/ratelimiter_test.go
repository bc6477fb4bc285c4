package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(max int, clock *time.Time) *RateLimiter {
	rl := NewRateLimiter(max)
	rl.now = func() time.Time { return *clock }
	return rl
}

func TestRateLimiter_CheckLimit(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := newTestLimiter(3, &clock)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.CheckLimit("1.1.1.1"))
	}
	assert.False(t, rl.CheckLimit("1.1.1.1"))

	// Other IPs are independent.
	assert.True(t, rl.CheckLimit("2.2.2.2"))
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := newTestLimiter(2, &clock)
	defer rl.Stop()

	assert.True(t, rl.CheckLimit("ip"))
	clock = clock.Add(30 * time.Second)
	assert.True(t, rl.CheckLimit("ip"))
	assert.False(t, rl.CheckLimit("ip"))

	// The first request leaves the window.
	clock = clock.Add(30 * time.Second)
	assert.True(t, rl.CheckLimit("ip"))
	assert.False(t, rl.CheckLimit("ip"))
}

func TestRateLimiter_GetRetryAfter(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := newTestLimiter(1, &clock)
	defer rl.Stop()

	assert.Equal(t, 0, rl.GetRetryAfter("ip"))

	rl.CheckLimit("ip")
	clock = clock.Add(20*time.Second + 500*time.Millisecond)
	assert.Equal(t, 40, rl.GetRetryAfter("ip"))

	clock = clock.Add(time.Minute)
	assert.Equal(t, 0, rl.GetRetryAfter("ip"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := newTestLimiter(5, &clock)
	defer rl.Stop()

	rl.CheckLimit("old")
	clock = clock.Add(50 * time.Second)
	rl.CheckLimit("fresh")
	clock = clock.Add(20 * time.Second)

	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.limits, "old")
	assert.Contains(t, rl.limits, "fresh")
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Stop()
	rl.Stop()
}
