package ratelimit

import (
	"context"
	"time"

	"meeting-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "meetings:ratelimit:"

// RedisLimiter shares windows across API instances. The check-and-increment
// runs as a single Lua script so concurrent requests cannot overshoot Max.
type RedisLimiter struct {
	rdb    redis.Scripter
	cfg    Config
	now    Clock
	prefix string
}

func NewRedisLimiter(rdb redis.Scripter, cfg Config, now Clock) (*RedisLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{rdb: rdb, cfg: cfg, now: now, prefix: defaultKeyPrefix}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, _, err := utils.AllowFixedWindow(ctx, l.rdb, l.prefix+key, l.cfg.Max, l.cfg.Window, l.now())
	return ok, err
}
