package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements the same sliding window on top of a sorted set per
// key, so multiple instances share one view of the counters.
type RedisLimiter struct {
	rdb *redis.Client
	cfg Config
}

func NewRedisLimiter(rdb *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, cfg: cfg}
}

func (l *RedisLimiter) windowKey(key string) string {
	return "ratelimit:window:" + key
}

func (l *RedisLimiter) blockKey(key string) string {
	return "ratelimit:block:" + key
}

func (l *RedisLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	blocked, err := l.rdb.Exists(ctx, l.blockKey(key)).Result()
	if err != nil {
		// Redis unavailable: fail open rather than reject every request.
		return true
	}
	if blocked > 0 {
		return false
	}

	now := time.Now()
	windowStart := now.Add(-l.cfg.Window)
	wk := l.windowKey(key)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, wk, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, wk)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}

	if countCmd.Val() >= int64(l.cfg.Limit) {
		l.rdb.Set(ctx, l.blockKey(key), "1", l.cfg.BlockDuration)
		return false
	}

	member := fmt.Sprintf("%d", now.UnixNano())
	pipe = l.rdb.TxPipeline()
	pipe.ZAdd(ctx, wk, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, wk, l.cfg.Window)
	_, _ = pipe.Exec(ctx)

	return true
}

func (l *RedisLimiter) Reset(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	l.rdb.Del(ctx, l.windowKey(key), l.blockKey(key))
}
