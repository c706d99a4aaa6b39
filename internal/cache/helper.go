package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"blogme/internal/middleware"
	"blogme/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(s, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside reads key into dest, or calls fetch to fill dest and stores the result with ttl.
// Cache failures never fail the call; the source of truth is fetch.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheRequests.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	case found:
		observability.CacheRequests.WithLabelValues("hit").Inc()
		return nil
	default:
		observability.CacheRequests.WithLabelValues("miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Generation returns the current value of a generation counter, 0 when unset or without Redis.
func Generation(ctx context.Context, key string) int64 {
	if client == nil {
		return 0
	}
	n, err := client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return n
}

// IncrDaily adds one to a per-day counter and keeps it for ttl.
func IncrDaily(ctx context.Context, key string, ttl time.Duration) {
	if client == nil {
		return
	}
	pipe := client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "daily counter update failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// GetInts reads integer values for keys; missing keys read as 0.
func GetInts(ctx context.Context, keys []string) []int {
	out := make([]int, len(keys))
	if client == nil || len(keys) == 0 {
		return out
	}
	vals, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return out
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			out[i] = n
		}
	}
	return out
}
