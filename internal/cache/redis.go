package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "rumtrack:bundles:"
	DefaultTTL = 6 * time.Hour
	scanBatch  = 200
)

// Redis keeps bundle responses in a shared redis instance. Keys are hashes
// of the request URL so domain keys never end up in redis key names.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(ctx context.Context, addr, password string, ttl time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func redisKey(url string) string {
	return keyPrefix + strconv.FormatUint(xxhash.Sum64String(url), 16)
}

func (r *Redis) Get(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := r.rdb.Get(ctx, redisKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return body, true, nil
}

func (r *Redis) Set(ctx context.Context, url string, body []byte) error {
	if err := r.rdb.Set(ctx, redisKey(url), body, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Flush deletes every key under the rumtrack prefix and leaves other keys
// alone.
func (r *Redis) Flush(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*", scanBatch).Iterator()

	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	if len(batch) > 0 {
		if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
