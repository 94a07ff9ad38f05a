// Package cache keeps search responses in Redis. Keys are derived by the
// engine from everything that affects scoring, so entries never need to be
// invalidated when the catalog or the learned synonyms change: the key
// simply moves on and stale entries expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/menu-search/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "menusearch:result:"

// Backend is the subset of *pkgredis.Client the cache uses. Misses are
// reported with a Redis nil error.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

var _ executor.ResultCache = (*QueryCache)(nil)

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
	logger  *slog.Logger
}

// Stats is served by GET /api/v1/cache/stats.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// New creates a cache. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached response for key. Backend errors count as misses.
func (c *QueryCache) Get(ctx context.Context, key string) (*executor.SearchResponse, bool) {
	redisKey := c.buildKey(key)
	data, err := c.backend.Get(ctx, redisKey)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", redisKey, "error", err)
		}
		c.miss()
		return nil, false
	}
	var resp executor.SearchResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Warn("cache entry unreadable", "key", redisKey, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	return &resp, true
}

// Set stores resp under key. Failures are logged and ignored.
func (c *QueryCache) Set(ctx context.Context, key string, resp *executor.SearchResponse) {
	redisKey := c.buildKey(key)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", redisKey, "error", err)
		return
	}
	if err := c.backend.Set(ctx, redisKey, data, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", redisKey, "error", err)
	}
}

// GetOrCompute returns the cached response or computes, stores and returns
// a fresh one. Concurrent misses for the same key compute once.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func() (*executor.SearchResponse, error),
) (*executor.SearchResponse, bool, error) {
	if resp, ok := c.Get(ctx, key); ok {
		return resp, true, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*executor.SearchResponse), false, nil
}

// Invalidate deletes every cached response.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
