// Package engine assembles the matching pipeline: two-tier score caching,
// feature prewarming, batch fan-out, and feedback-driven weight training.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/domain/matching"
	"github.com/cartwise/matchengine/internal/infrastructure/cache/redis"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/prometheus"
)

const (
	scoreKeyPrefix   = "scores:"
	featureKeyPrefix = "features:"
	tierLocal        = "local"
	tierShared       = "shared"
)

// PairKey derives the cache key for a (query, product) pair: a content hash of
// the lower-cased pair with a separator, so the key is stable across processes
// and asymmetric under operand swap.
func PairKey(query, product string) string {
	h := xxhash.Sum64String(strings.ToLower(query) + ":" + strings.ToLower(product))
	return fmt.Sprintf("%016x", h)
}

// fifoCache is a bounded map with insertion-order eviction.  Used for
// memoizing pure sub-computations where a dropped entry only costs a
// recomputation.
type fifoCache[K comparable, V any] struct {
	mu    sync.Mutex
	cap   int
	items map[K]V
	order []K
}

func newFIFOCache[K comparable, V any](capacity int) *fifoCache[K, V] {
	return &fifoCache[K, V]{
		cap:   capacity,
		items: make(map[K]V, capacity),
	}
}

func (c *fifoCache[K, V]) getOrCompute(key K, compute func() V) V {
	c.mu.Lock()
	if v, ok := c.items[key]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	// Computed outside the lock; a duplicate computation under contention is
	// cheaper than serializing every caller behind one Levenshtein call.
	v := compute()

	c.mu.Lock()
	if _, ok := c.items[key]; !ok {
		if len(c.order) >= c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
		c.items[key] = v
		c.order = append(c.order, key)
	}
	c.mu.Unlock()
	return v
}

func (c *fifoCache[K, V]) purge() {
	c.mu.Lock()
	c.items = make(map[K]V, c.cap)
	c.order = nil
	c.mu.Unlock()
}

func (c *fifoCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CacheLayer is the two-tier score cache plus the feature cache and the
// sub-computation memos.  The local tier is an in-process TTL'd LRU; the
// shared tier is Redis with a bounded per-operation timeout.  Shared-tier
// failures degrade to direct computation and are never surfaced to callers.
type CacheLayer struct {
	local    *lru.LRU[string, float64]
	features *lru.LRU[string, *matching.ProductFeatures]
	shared   redis.Cache

	scoreTTL   time.Duration
	featureTTL time.Duration
	opTimeout  time.Duration

	// flight collapses concurrent misses on the same pair so the scoring
	// pipeline runs at most once per key per TTL window.
	flight singleflight.Group

	levMemo      *fifoCache[string, float64]
	bigramMemo   *fifoCache[string, float64]
	phoneticMemo *fifoCache[string, string]

	logger  logging.Logger
	metrics *prometheus.EngineMetrics
}

// NewCacheLayer builds the cache tiers.  shared may be nil, in which case the
// layer runs purely in-process.
func NewCacheLayer(cfg config.CacheConfig, opTimeout time.Duration, shared redis.Cache, log logging.Logger, metrics *prometheus.EngineMetrics) *CacheLayer {
	return &CacheLayer{
		local:        lru.NewLRU[string, float64](cfg.LocalCapacity, nil, cfg.LocalTTL),
		features:     lru.NewLRU[string, *matching.ProductFeatures](cfg.LocalCapacity, nil, cfg.FeatureTTL),
		shared:       shared,
		scoreTTL:     cfg.ScoreTTL,
		featureTTL:   cfg.FeatureTTL,
		opTimeout:    opTimeout,
		levMemo:      newFIFOCache[string, float64](cfg.MemoCapacity),
		bigramMemo:   newFIFOCache[string, float64](cfg.MemoCapacity),
		phoneticMemo: newFIFOCache[string, string](cfg.MemoCapacity),
		logger:       log,
		metrics:      metrics,
	}
}

// GetOrCompute returns the cached score for (query, product), consulting the
// local tier, then the shared tier, then compute.  The returned bool reports
// whether any cache tier served the value.
func (c *CacheLayer) GetOrCompute(ctx context.Context, query, product string, compute func() float64) (float64, bool) {
	key := PairKey(query, product)

	if v, ok := c.local.Get(key); ok {
		c.metrics.CacheHitsTotal.WithLabelValues(tierLocal).Inc()
		return v, true
	}
	c.metrics.CacheMissesTotal.WithLabelValues(tierLocal).Inc()

	// ran and servedByTier are only written by the leader's closure; callers
	// that join an in-flight computation leave both false.
	ran := false
	servedByTier := false
	v, _, _ := c.flight.Do(key, func() (interface{}, error) {
		ran = true
		if v, ok := c.sharedGetFloat(ctx, scoreKeyPrefix+key); ok {
			c.metrics.CacheHitsTotal.WithLabelValues(tierShared).Inc()
			c.local.Add(key, v)
			servedByTier = true
			return v, nil
		}
		v := compute()
		c.local.Add(key, v)
		c.sharedSetFloat(ctx, scoreKeyPrefix+key, v, c.scoreTTL)
		return v, nil
	})
	return v.(float64), !ran || servedByTier
}

// GetFeatures returns cached features for the normalized source string, or
// false when neither tier has them.
func (c *CacheLayer) GetFeatures(ctx context.Context, source string) (*matching.ProductFeatures, bool) {
	if f, ok := c.features.Get(source); ok {
		return f, true
	}
	if c.shared == nil {
		return nil, false
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	var f matching.ProductFeatures
	if err := c.shared.GetJSON(opCtx, featureKeyPrefix+PairKey(source, ""), &f); err != nil {
		if err != redis.ErrCacheMiss {
			c.sharedDegraded("feature lookup", err)
		}
		return nil, false
	}
	c.features.Add(source, &f)
	return &f, true
}

// PutFeatures stores features in both tiers.
func (c *CacheLayer) PutFeatures(ctx context.Context, f *matching.ProductFeatures) {
	c.features.Add(f.Source, f)
	if c.shared == nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.shared.SetJSON(opCtx, featureKeyPrefix+PairKey(f.Source, ""), f, c.featureTTL); err != nil {
		c.sharedDegraded("feature store", err)
	}
}

// LevenshteinSimilarity is the memoized edit-distance similarity.
func (c *CacheLayer) LevenshteinSimilarity(a, b string) float64 {
	return c.levMemo.getOrCompute(memoKey(a, b), func() float64 {
		return matching.LevenshteinSimilarity(a, b)
	})
}

// BigramSimilarity is the memoized bigram-Jaccard similarity.
func (c *CacheLayer) BigramSimilarity(a, b string) float64 {
	return c.bigramMemo.getOrCompute(memoKey(a, b), func() float64 {
		return matching.BigramJaccard(a, b)
	})
}

// PhoneticKey is the memoized phonetic fingerprint.
func (c *CacheLayer) PhoneticKey(s string) string {
	return c.phoneticMemo.getOrCompute(s, func() string {
		return matching.PhoneticKey(s)
	})
}

// ClearAll empties every tier and every memo map.  The shared tier is cleared
// by prefix so unrelated keys in the same Redis database survive.
func (c *CacheLayer) ClearAll(ctx context.Context) error {
	c.local.Purge()
	c.features.Purge()
	c.levMemo.purge()
	c.bigramMemo.purge()
	c.phoneticMemo.purge()

	if c.shared == nil {
		return nil
	}
	if _, err := c.shared.DeleteByPrefix(ctx, scoreKeyPrefix); err != nil {
		return err
	}
	_, err := c.shared.DeleteByPrefix(ctx, featureKeyPrefix)
	return err
}

// LocalLen returns the number of entries in the local score tier.
func (c *CacheLayer) LocalLen() int {
	return c.local.Len()
}

func (c *CacheLayer) sharedGetFloat(ctx context.Context, key string) (float64, bool) {
	if c.shared == nil {
		return 0, false
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	v, err := c.shared.GetFloat(opCtx, key)
	if err != nil {
		if err != redis.ErrCacheMiss {
			c.sharedDegraded("score lookup", err)
		} else {
			c.metrics.CacheMissesTotal.WithLabelValues(tierShared).Inc()
		}
		return 0, false
	}
	return v, true
}

func (c *CacheLayer) sharedSetFloat(ctx context.Context, key string, v float64, ttl time.Duration) {
	if c.shared == nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.shared.SetFloat(opCtx, key, v, ttl); err != nil {
		c.sharedDegraded("score store", err)
	}
}

// sharedDegraded records a shared-tier failure.  Scoring continues on the
// local tier and direct computation.
func (c *CacheLayer) sharedDegraded(op string, err error) {
	c.metrics.CacheErrorsTotal.WithLabelValues(tierShared).Inc()
	c.logger.Warn("shared cache unavailable, degrading to direct computation",
		logging.String("op", op), logging.Err(err))
}

func memoKey(a, b string) string {
	return a + "\x00" + b
}
