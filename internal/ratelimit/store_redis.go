package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "agrimarket:ratelimit:"

// RedisStore is a fixed-window Store shared by every gateway replica.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := s.now()
	start := now.Truncate(window)
	bucket := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, start.Unix())

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, bucket)
		pipe.PExpire(ctx, bucket, window)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit count %s: %w", key, err)
	}

	count := int(incr.Val())
	res := Result{Limit: limit, ResetAt: start.Add(window)}
	if count > limit {
		return res, nil
	}
	res.Allowed = true
	res.Remaining = limit - count
	return res, nil
}
