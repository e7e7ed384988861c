package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/infrastructure/cache/redis"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/prometheus"
	"github.com/cartwise/matchengine/internal/testutil"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func testMetrics(t *testing.T) *prometheus.EngineMetrics {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "test",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return prometheus.NewEngineMetrics(collector)
}

func newTestCacheLayer(t *testing.T, shared redis.Cache, log logging.Logger) *CacheLayer {
	t.Helper()
	cfg := testConfig()
	if log == nil {
		log = logging.NewNopLogger()
	}
	return NewCacheLayer(cfg.Cache, cfg.Redis.OpTimeout, shared, log, testMetrics(t))
}

func TestPairKey_Asymmetric(t *testing.T) {
	assert.NotEqual(t, PairKey("milk", "bread"), PairKey("bread", "milk"))
	assert.Equal(t, PairKey("Milk", "Bread"), PairKey("milk", "bread"))
}

func TestFIFOCache_ComputesOnce(t *testing.T) {
	c := newFIFOCache[string, int](4)
	calls := 0
	compute := func() int { calls++; return 42 }

	assert.Equal(t, 42, c.getOrCompute("k", compute))
	assert.Equal(t, 42, c.getOrCompute("k", compute))
	assert.Equal(t, 1, calls)
}

func TestFIFOCache_EvictsOldestFirst(t *testing.T) {
	c := newFIFOCache[string, int](2)
	c.getOrCompute("a", func() int { return 1 })
	c.getOrCompute("b", func() int { return 2 })
	c.getOrCompute("c", func() int { return 3 }) // evicts "a"

	calls := 0
	c.getOrCompute("a", func() int { calls++; return 1 })
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, c.len())
}

func TestGetOrCompute_Idempotent(t *testing.T) {
	layer := newTestCacheLayer(t, nil, nil)
	ctx := context.Background()
	calls := 0
	compute := func() float64 { calls++; return 0.75 }

	v1, hit1 := layer.GetOrCompute(ctx, "milk", "whole milk", compute)
	v2, hit2 := layer.GetOrCompute(ctx, "milk", "whole milk", compute)

	assert.Equal(t, 0.75, v1)
	assert.Equal(t, v1, v2)
	assert.False(t, hit1)
	assert.True(t, hit2)
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_CollapsesConcurrentMisses(t *testing.T) {
	layer := newTestCacheLayer(t, nil, nil)
	ctx := context.Background()

	var calls atomic.Int32
	compute := func() float64 {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond)
		return 0.42
	}

	const workers = 8
	results := make([]float64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = layer.GetOrCompute(ctx, "milk", "whole milk", compute)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 0.42, v)
	}
}

func TestGetOrCompute_SharedTierServesColdLocal(t *testing.T) {
	shared := testutil.NewMemoryCache()
	ctx := context.Background()

	warm := newTestCacheLayer(t, shared, nil)
	warm.GetOrCompute(ctx, "milk", "whole milk", func() float64 { return 0.6 })

	// A fresh layer with an empty local tier finds the score in the shared tier.
	cold := newTestCacheLayer(t, shared, nil)
	calls := 0
	v, hit := cold.GetOrCompute(ctx, "milk", "whole milk", func() float64 { calls++; return 0 })

	assert.Equal(t, 0.6, v)
	assert.True(t, hit)
	assert.Equal(t, 0, calls)
}

func TestGetOrCompute_SharedOutageDegradesWithWarning(t *testing.T) {
	shared := testutil.NewMemoryCache()
	shared.SetFail(true)
	log, logs := testutil.ObservedLogger(zapcore.WarnLevel)
	layer := newTestCacheLayer(t, shared, log)

	v, hit := layer.GetOrCompute(context.Background(), "milk", "whole milk", func() float64 { return 0.9 })

	assert.Equal(t, 0.9, v)
	assert.False(t, hit)
	assert.Greater(t, logs.FilterMessageSnippet("shared cache unavailable").Len(), 0)
}

func TestClearAll_EmptiesEveryTier(t *testing.T) {
	shared := testutil.NewMemoryCache()
	layer := newTestCacheLayer(t, shared, nil)
	ctx := context.Background()

	layer.GetOrCompute(ctx, "milk", "whole milk", func() float64 { return 0.5 })
	layer.LevenshteinSimilarity("milk", "mill")
	layer.BigramSimilarity("milk", "mill")
	layer.PhoneticKey("milk")
	require.Equal(t, 1, layer.LocalLen())

	require.NoError(t, layer.ClearAll(ctx))

	assert.Equal(t, 0, layer.LocalLen())
	assert.Equal(t, 0, layer.levMemo.len())
	assert.Equal(t, 0, layer.bigramMemo.len())
	assert.Equal(t, 0, layer.phoneticMemo.len())
	assert.Equal(t, 0, shared.Len())

	calls := 0
	layer.GetOrCompute(ctx, "milk", "whole milk", func() float64 { calls++; return 0.5 })
	assert.Equal(t, 1, calls)
}

func TestMemoizedMetricsMatchDirectComputation(t *testing.T) {
	layer := newTestCacheLayer(t, nil, nil)

	assert.Equal(t, 0.75, layer.LevenshteinSimilarity("milk", "mill"))
	assert.Equal(t, layer.BigramSimilarity("milk", "milk"), 1.0)
	assert.Equal(t, layer.PhoneticKey("apple"), "apl")
}

func TestFeatureCache_RoundTripThroughSharedTier(t *testing.T) {
	shared := testutil.NewMemoryCache()
	ctx := context.Background()

	warm := newTestCacheLayer(t, shared, nil)
	_, ok := warm.GetFeatures(ctx, "great value milk")
	require.False(t, ok)

	// Populate through a layer, then read from one with a cold local tier.
	f := newTestEngine(t, shared).featuresFor(ctx, "Great Value Milk")
	cold := newTestCacheLayer(t, shared, nil)
	got, ok := cold.GetFeatures(ctx, f.Source)
	require.True(t, ok)
	assert.Equal(t, f.Brand, got.Brand)
	assert.Equal(t, f.Keywords, got.Keywords)
}
