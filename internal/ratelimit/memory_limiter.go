package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter keeps its windows in process memory. State is scoped to one
// process: running multiple instances fragments the counters, which is an
// accepted limitation of the memory backend (use the redis backend to share
// state across instances).
type MemoryLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	blocks   *cache.Cache
	cfg      Config
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		attempts: make(map[string][]time.Time),
		blocks:   cache.New(cfg.BlockDuration, 10*time.Minute),
		cfg:      cfg,
	}
}

func (l *MemoryLimiter) Allow(key string) bool {
	if _, blocked := l.blocks.Get(key); blocked {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var valid []time.Time
	for _, t := range l.attempts[key] {
		if now.Sub(t) < l.cfg.Window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= l.cfg.Limit {
		l.attempts[key] = valid
		l.blocks.Set(key, true, l.cfg.BlockDuration)
		return false
	}

	l.attempts[key] = append(valid, now)
	return true
}

func (l *MemoryLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
	l.blocks.Delete(key)
}
