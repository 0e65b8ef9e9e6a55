package ratelimit

import "time"

// Limiter is a sliding-window counter with a block duration. Keys are opaque
// strings, typically a client IP or a user id.
type Limiter interface {
	// Allow records an attempt for key and reports whether it is within the
	// limit. Once the limit is exceeded the key is blocked for the
	// configured block duration; attempts during the block are rejected
	// without touching the window.
	Allow(key string) bool

	// Reset clears the window and any block for key.
	Reset(key string)
}

type Config struct {
	Limit         int
	Window        time.Duration
	BlockDuration time.Duration
}
