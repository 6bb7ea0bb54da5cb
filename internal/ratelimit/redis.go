package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// Redis counts requests per key in fixed windows shared by every instance.
type Redis struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedis allows limit requests per key in each window.
func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{client: client, limit: int64(limit), window: window, now: time.Now}
}

// Allow increments the counter for the current window. The increment and the
// expiry are applied in one MULTI so a counter never outlives its window.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	bucket := r.now().UnixNano() / int64(r.window)
	redisKey := redisKeyPrefix + key + ":" + strconv.FormatInt(bucket, 10)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= r.limit, nil
}
