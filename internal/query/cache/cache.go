package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/resilience"
)

const keyPrefix = "scores:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache caches aggregate command outputs per index fingerprint, so a
// rebuilt index over a different corpus never sees stale results.
type QueryCache struct {
	store       Store
	isMiss      func(error) bool
	fingerprint string
	ttl         time.Duration
	group       singleflight.Group
	metrics     *metrics.Metrics
	logger      *slog.Logger
	hits        atomic.Int64
	misses      atomic.Int64
}

// New creates a cache. isMiss classifies store errors that mean "key not
// found"; m may be nil.
func New(store Store, isMiss func(error) bool, fingerprint string, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:       store,
		isMiss:      isMiss,
		fingerprint: fingerprint,
		ttl:         ttl,
		metrics:     m,
		logger:      slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, batch string) (string, bool) {
	key := c.buildKey(batch)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		switch {
		case c.isMiss(err):
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.logger.Debug("cache bypassed", "error", err)
		default:
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return "", false
	}
	c.hit()
	c.logger.Debug("cache hit", "key", key)
	return data, true
}

func (c *QueryCache) Set(ctx context.Context, batch string, output string) {
	key := c.buildKey(batch)
	if err := c.store.Set(ctx, key, output, c.ttl); err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached output for batch or computes, stores and
// returns it. Concurrent callers with the same batch share one computation.
func (c *QueryCache) GetOrCompute(ctx context.Context, batch string, computeFn func() (string, error)) (string, bool, error) {
	if out, ok := c.Get(ctx, batch); ok {
		return out, true, nil
	}
	key := c.buildKey(batch)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		out, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, batch, out)
		return out, nil
	})
	if err != nil {
		return "", false, err
	}
	return val.(string), false, nil
}

// Invalidate drops every cached entry for this cache's fingerprint.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + c.fingerprint + ":*"
	deleted, err := c.store.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
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

func (c *QueryCache) buildKey(batch string) string {
	hash := sha256.Sum256([]byte(NormalizeBatch(batch)))
	return fmt.Sprintf("%s%s:%x", keyPrefix, c.fingerprint, hash[:16])
}

// NormalizeBatch collapses whitespace within lines and drops blank lines.
// Line breaks are kept because commands never take arguments from the next
// line, and case is kept because WORDSCORE and REVIEWSCORE echo words as
// given.
func NormalizeBatch(batch string) string {
	lines := strings.Split(batch, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, strings.Join(fields, " "))
		}
	}
	return strings.Join(out, "\n")
}
