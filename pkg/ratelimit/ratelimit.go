package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter backed by redis. A nil client allows
// everything, which keeps the game loop usable in tests and local setups
// without redis.
type Limiter struct {
	rdb       *redis.Client
	maxPerSec int64
}

func New(rdb *redis.Client, maxPerSec int64) *Limiter {
	if maxPerSec <= 0 {
		maxPerSec = 20
	}
	return &Limiter{rdb: rdb, maxPerSec: maxPerSec}
}

// Allow reports whether one more action under key fits in the current
// one-second window. Redis failures fail open.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.rdb == nil {
		return true
	}
	window := time.Now().Unix()
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, window)
	count, err := l.rdb.Incr(ctx, bucket).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.rdb.Expire(ctx, bucket, 2*time.Second)
	}
	return count <= l.maxPerSec
}
