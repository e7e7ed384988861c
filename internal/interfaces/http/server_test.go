package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/engine"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/prometheus"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.Mode = "test"

	log := logging.NewNopLogger()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, log)
	require.NoError(t, err)
	eng := engine.New(cfg, nil, log, prometheus.NewEngineMetrics(collector))

	return NewServer(cfg.Server, eng, nil, collector, log)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestScoreEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/score",
		`{"query":"milk","product":"Great Value Whole Milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Score float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Greater(t, resp.Score, 0.5)
	assert.Less(t, resp.Score, 1.0)
}

func TestScoreEndpoint_Detailed(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/score",
		`{"query":"milk","product":"Great Value Whole Milk","detailed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"semantic"`)
	assert.Contains(t, rec.Body.String(), `"overall"`)
}

func TestScoreEndpoint_MissingFields(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/score", `{"query":"milk"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "COMMON_002")
}

func TestMatchEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/match",
		`{"queries":["milk","bread"],"products":["Whole Milk 1 gal","Wonder Bread"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Scores       []map[string]interface{} `json:"scores"`
		TotalPairs   int                      `json:"total_pairs"`
		CacheHitRate float64                  `json:"cache_hit_rate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.TotalPairs)
	assert.Len(t, resp.Scores, 4)
	assert.Equal(t, 0.0, resp.CacheHitRate)
}

func TestFeedbackEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/feedback",
		`{"query":"milk","product_name":"Whole Milk","score":0.7,"label":"positive"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id"`)
}

func TestFeedbackEndpoint_BadLabel(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/feedback",
		`{"query":"milk","product_name":"Whole Milk","score":0.7,"label":"meh"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MATCH_003")
}

func TestWeightsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/weights", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var w map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	assert.InDelta(t, 1.0, w["lexical"]+w["semantic"]+w["brand"]+w["category"]+w["size"], 1e-9)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/score", `{"query":"milk","product":"Whole Milk"}`)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"local_score_entries":1`)
}

func TestClearCacheEndpoint(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/score", `{"query":"milk","product":"Whole Milk"}`)

	rec := doJSON(t, s, http.MethodDelete, "/api/v1/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stats := doJSON(t, s, http.MethodGet, "/api/v1/stats", "")
	assert.Contains(t, stats.Body.String(), `"local_score_entries":0`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/score", `{"query":"milk","product":"Whole Milk"}`)

	rec := doJSON(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_match_requests_total")
	assert.Contains(t, rec.Body.String(), "test_model_weight")
}
