// Package cache provides a read-through cache for URL lookups.
//
// URL records never change once created, so cached entries are only ever
// evicted by their TTL. Unknown short codes are not cached: a code that is
// missing now may be created a moment later.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
)

const keyPrefix = "shortlink:url:"

type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type urlRetriever interface {
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)
}

type cachedURL struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type URLCache struct {
	client  client
	backend urlRetriever
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewURLCache(client client, backend urlRetriever, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *URLCache {
	return &URLCache{
		client:  client,
		backend: backend,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// RetrieveByShortCode serves the record from Redis when possible and falls
// back to the backend otherwise. Redis failures are logged and never
// returned: the backend stays the source of truth.
func (c *URLCache) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.cache.URLCache.RetrieveByShortCode"

	key := keyPrefix + shortCode

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedURL
		if err := json.Unmarshal(data, &cached); err == nil {
			c.metrics.CacheRequests.WithLabelValues("hit").Inc()
			return cached.toEntity(), nil
		}

		c.logger.Warn("discarding malformed cache entry", slog.String("op", op), slog.String("key", key))
		c.metrics.CacheRequests.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		c.metrics.CacheRequests.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("failed to read from cache", slog.String("op", op), slog.Any("err", err))
		c.metrics.CacheRequests.WithLabelValues("error").Inc()
	}

	url, err := c.backend.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err = json.Marshal(fromEntity(url))
	if err != nil {
		c.logger.Warn("failed to encode cache entry", slog.String("op", op), slog.Any("err", err))
		return url, nil
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to write to cache", slog.String("op", op), slog.Any("err", err))
	}

	return url, nil
}

func fromEntity(url *entity.URL) cachedURL {
	return cachedURL{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
	}
}

func (u *cachedURL) toEntity() *entity.URL {
	return &entity.URL{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		CreatedAt:   u.CreatedAt,
	}
}

// Ping checks the connection of a go-redis client.
func Ping(ctx context.Context, c *redis.Client) error {
	const op = "adapter.repository.cache.Ping"

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: failed to ping redis: %w", op, err)
	}

	return nil
}
