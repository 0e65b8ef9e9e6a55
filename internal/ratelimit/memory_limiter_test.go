package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterAllowsUnderLimit(t *testing.T) {
	limiter := NewMemoryLimiter(Config{
		Limit:         3,
		Window:        time.Minute,
		BlockDuration: time.Minute,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "attempt %d", i)
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Other keys are unaffected.
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestMemoryLimiterBlockOutlastsWindow(t *testing.T) {
	limiter := NewMemoryLimiter(Config{
		Limit:         2,
		Window:        20 * time.Millisecond,
		BlockDuration: 200 * time.Millisecond,
	})

	limiter.Allow("key")
	limiter.Allow("key")
	assert.False(t, limiter.Allow("key"))

	// The window has rolled over but the block is still in force.
	time.Sleep(40 * time.Millisecond)
	assert.False(t, limiter.Allow("key"))
}

func TestMemoryLimiterWindowSlides(t *testing.T) {
	limiter := NewMemoryLimiter(Config{
		Limit:         2,
		Window:        30 * time.Millisecond,
		BlockDuration: time.Minute,
	})

	limiter.Allow("key")
	limiter.Allow("key")

	// Old attempts age out, so the next one is within the limit again and
	// never trips the block.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, limiter.Allow("key"))
}

func TestMemoryLimiterReset(t *testing.T) {
	limiter := NewMemoryLimiter(Config{
		Limit:         1,
		Window:        time.Minute,
		BlockDuration: time.Minute,
	})

	limiter.Allow("key")
	assert.False(t, limiter.Allow("key"))

	limiter.Reset("key")
	assert.True(t, limiter.Allow("key"))
}
