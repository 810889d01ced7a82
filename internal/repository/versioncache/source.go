// Package versioncache caches latest version lookups so repeated healthcheck
// runs do not hammer the public release feed.
package versioncache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/cache/redis"
	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

const cacheKey = "passbolt:latest_version"

const defaultTTL = 24 * time.Hour

// store is the consumer interface for the version cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSource is a caching decorator around a version source. Cache failures
// degrade to the inner source rather than failing the lookup.
type CachedSource struct {
	inner      healthcheck.VersionSource
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. cacheTotal is a counter vec with label
// "result" ("hit"/"miss"), passed explicitly.
func New(
	inner healthcheck.VersionSource,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSource {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// LatestVersion returns the cached version or asks the inner source.
func (c *CachedSource) LatestVersion(ctx context.Context) (string, error) {
	if cached, ok := c.getFromCache(ctx); ok {
		c.incCache("hit")
		return cached, nil
	}
	c.incCache("miss")

	latest, err := c.inner.LatestVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("latest version: %w", err)
	}

	c.putToCache(ctx, latest)
	return latest, nil
}

func (c *CachedSource) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSource) getFromCache(ctx context.Context) (string, bool) {
	data, err := c.store.Get(ctx, cacheKey)
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached version", zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *CachedSource) putToCache(ctx context.Context, latest string) {
	if err := c.store.SetWithTTL(ctx, cacheKey, []byte(latest), c.ttl); err != nil {
		c.logger.Warn("Failed to cache version", zap.Error(err))
	}
}
