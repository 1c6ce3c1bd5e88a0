package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long cached suggestions stay fresh.
const DefaultCacheTTL = 15 * time.Minute

// CachedProvider decorates a Provider with a per-user Redis cache. Cache
// failures are logged and degrade to the inner provider; they never fail a
// suggestion request on their own.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
}

// NewCachedProvider wraps inner with a Redis cache. A ttl of 0 means
// DefaultCacheTTL.
func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{inner: inner, client: client, ttl: ttl}
}

func (c *CachedProvider) Suggest(ctx context.Context, sc StudyContext) ([]Suggestion, error) {
	key := cacheKey(sc)

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached []Suggestion
		if err := json.Unmarshal(data, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	} else if err != redis.Nil {
		slog.Warn("suggestion cache read failed", "error", err)
	}

	suggestions, err := c.inner.Suggest(ctx, sc)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(suggestions); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("suggestion cache write failed", "error", err)
		}
	}
	return suggestions, nil
}

// cacheKey keys on the fields that change what the model would say, so a
// completed chapter or a new streak invalidates naturally.
func cacheKey(sc StudyContext) string {
	return fmt.Sprintf("suggest:%s:%d:%d:%d", sc.UserID, sc.CompletedChapters, sc.CurrentChapter, sc.Streak)
}
