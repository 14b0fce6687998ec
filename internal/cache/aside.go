package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"appx/internal/middleware"
	"appx/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside implements cache-aside for JSON-serialisable values. On a hit dest is
// filled from Redis; on a miss load is called, which must fill dest, and the
// result is stored with ttl. Without a Redis client load is always called.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client == nil {
		return load()
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return nil
		}
		// Undecodable entry; fall through and overwrite it.
	case !errors.Is(err, redis.Nil):
		middleware.Logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	observability.CacheLookups.WithLabelValues("miss").Inc()

	if err := load(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}
