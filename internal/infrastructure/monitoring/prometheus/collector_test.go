package prometheus

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "matchengine"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRegisterCounter_IncrementAndExpose(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("test_hits_total", "test counter", "tier")
	vec.WithLabelValues("local").Inc()
	vec.WithLabelValues("local").Add(2)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `matchengine_test_hits_total{tier="local"} 3`)
}

func TestRegisterDuplicate_ReturnsExisting(t *testing.T) {
	c := newTestCollector(t)
	a := c.RegisterCounter("dup_total", "dup", "l")
	b := c.RegisterCounter("dup_total", "dup", "l")

	a.WithLabelValues("x").Inc()
	b.WithLabelValues("x").Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `matchengine_dup_total{l="x"} 2`)
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)

	g := c.RegisterGauge("weight", "weight gauge", "signal")
	g.WithLabelValues("brand").Set(0.15)

	h := c.RegisterHistogram("dur_seconds", "durations", nil, "cached")
	h.WithLabelValues("true").Observe(0.002)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `matchengine_weight{signal="brand"} 0.15`)
	assert.Contains(t, body, "matchengine_dur_seconds_count")
}

func TestNewEngineMetrics(t *testing.T) {
	c := newTestCollector(t)
	m := NewEngineMetrics(c)
	require.NotNil(t, m)

	m.CacheHitsTotal.WithLabelValues("local").Inc()
	m.ModelWeight.WithLabelValues("lexical").Set(0.3)
	m.BatchCacheHitRate.WithLabelValues().Set(0.75)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `matchengine_cache_hits_total{tier="local"} 1`)
	assert.Contains(t, body, `matchengine_model_weight{signal="lexical"} 0.3`)
}
