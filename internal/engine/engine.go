package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/domain/matching"
	"github.com/cartwise/matchengine/internal/infrastructure/cache/redis"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/prometheus"
	"github.com/cartwise/matchengine/pkg/errors"
)

// weightsKey is the shared-cache key under which weight snapshots persist.
const weightsKey = "model:weights"

// Pair identifies one (query, product) scoring in a batch result.
type Pair struct {
	Query   string
	Product string
}

// BatchResult aggregates one MatchBatch invocation.
type BatchResult struct {
	Scores       map[Pair]float64
	TotalPairs   int
	CacheHits    int
	CacheHitRate float64
	Elapsed      time.Duration
}

// EngineStats is the operational snapshot served by the stats endpoint.
type EngineStats struct {
	Weights           matching.WeightModel `json:"weights"`
	FeedbackBuffered  int                  `json:"feedback_buffered"`
	LocalScoreEntries int                  `json:"local_score_entries"`
	MemoEntries       int                  `json:"memo_entries"`
}

// Engine owns the matching pipeline: extractor, scorer, adaptive weights, and
// the cache layer.  Engines are explicitly constructed and injected; multiple
// isolated instances can coexist, which the tests rely on.
type Engine struct {
	extractor *matching.Extractor
	scorer    *matching.Scorer
	model     *matching.AdaptiveModel
	cache     *CacheLayer

	parallelism int
	shared      redis.Cache
	opTimeout   time.Duration

	logger  logging.Logger
	metrics *prometheus.EngineMetrics
}

// New assembles an Engine from configuration.  shared may be nil to run
// without the shared cache tier.
func New(cfg *config.Config, shared redis.Cache, log logging.Logger, metrics *prometheus.EngineMetrics) *Engine {
	tables := matching.DefaultTables()
	cache := NewCacheLayer(cfg.Cache, cfg.Redis.OpTimeout, shared, log, metrics)

	initial := matching.DefaultWeights()
	initial.LearningRate = cfg.Training.LearningRate

	e := &Engine{
		extractor:   matching.NewExtractor(tables).WithPhonetic(cache.PhoneticKey),
		scorer:      matching.NewScorer(tables).WithTextMetrics(cache.LevenshteinSimilarity, cache.BigramSimilarity),
		model:       matching.NewAdaptiveModel(initial, cfg.Training.BufferThreshold),
		cache:       cache,
		parallelism: cfg.Matching.BatchParallelism,
		shared:      shared,
		opTimeout:   cfg.Redis.OpTimeout,
		logger:      log.Named("engine"),
		metrics:     metrics,
	}
	e.publishWeightMetrics()
	return e
}

// ScorePair scores one (query, product) pair through the cache layer.
func (e *Engine) ScorePair(ctx context.Context, query, product string) float64 {
	e.metrics.MatchRequestsTotal.WithLabelValues("single").Inc()
	score, _ := e.scorePair(ctx, query, product, "single")
	return score
}

// ScoreDetailed computes the full metrics breakdown for one pair, bypassing
// the score cache.  Used by diagnostic tooling.
func (e *Engine) ScoreDetailed(ctx context.Context, query, product string) matching.SimilarityMetrics {
	q := e.featuresFor(ctx, query)
	p := e.featuresFor(ctx, product)
	return e.scorer.Score(q, p, e.model.Current())
}

func (e *Engine) scorePair(ctx context.Context, query, product, source string) (float64, bool) {
	start := time.Now()
	score, hit := e.cache.GetOrCompute(ctx, query, product, func() float64 {
		q := e.featuresFor(ctx, query)
		p := e.featuresFor(ctx, product)
		return e.scorer.Score(q, p, e.model.Current()).Overall
	})

	cached := "false"
	if hit {
		cached = "true"
	}
	e.metrics.ScoreDuration.WithLabelValues(cached).Observe(time.Since(start).Seconds())
	e.metrics.ScoreOverall.WithLabelValues(source).Observe(score)
	return score, hit
}

// featuresFor returns the feature bundle for text, extracting and caching on
// miss.  Extraction never fails, so neither does this.
func (e *Engine) featuresFor(ctx context.Context, text string) *matching.ProductFeatures {
	normalized := e.extractor.Normalize(text)
	if f, ok := e.cache.GetFeatures(ctx, normalized); ok {
		return f
	}
	f := e.extractor.Extract(text)
	e.cache.PutFeatures(ctx, f)
	return f
}

// MatchBatch scores the full cross product of queries and products with
// bounded parallelism.  Pair order is unspecified; the caller receives a map.
func (e *Engine) MatchBatch(ctx context.Context, queries, products []string) (*BatchResult, error) {
	start := time.Now()
	e.metrics.MatchRequestsTotal.WithLabelValues("batch").Inc()

	// Prewarm product features so the nested loop never re-extracts.
	for _, p := range products {
		e.featuresFor(ctx, p)
	}

	result := &BatchResult{
		Scores:     make(map[Pair]float64, len(queries)*len(products)),
		TotalPairs: len(queries) * len(products),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for _, q := range queries {
		for _, p := range products {
			q, p := q, p
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				score, hit := e.scorePair(gctx, q, p, "batch")
				mu.Lock()
				result.Scores[Pair{Query: q, Product: p}] = score
				if hit {
					result.CacheHits++
				}
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBatchAborted, "batch matching aborted")
	}

	if result.TotalPairs > 0 {
		result.CacheHitRate = float64(result.CacheHits) / float64(result.TotalPairs)
	}
	result.Elapsed = time.Since(start)

	e.metrics.BatchPairsTotal.WithLabelValues().Add(float64(result.TotalPairs))
	e.metrics.BatchDuration.WithLabelValues().Observe(result.Elapsed.Seconds())
	e.metrics.BatchCacheHitRate.WithLabelValues().Set(result.CacheHitRate)

	e.logger.Debug("batch complete",
		logging.Int("pairs", result.TotalPairs),
		logging.Float64("cache_hit_rate", result.CacheHitRate),
		logging.Duration("elapsed", result.Elapsed))
	return result, nil
}

// RecordFeedback buffers a feedback event, training synchronously once the
// buffer threshold is crossed.
func (e *Engine) RecordFeedback(ctx context.Context, ev matching.FeedbackEvent) error {
	if !ev.Label.Valid() {
		return errors.New(errors.ErrCodeFeedbackMalformed, "unknown feedback label").
			WithDetail(string(ev.Label))
	}
	e.metrics.FeedbackEventsTotal.WithLabelValues(string(ev.Label)).Inc()

	if e.model.Record(ev) {
		e.TrainNow(ctx, "threshold")
	}
	return nil
}

// TrainNow runs one training pass if the buffer is large enough, publishing
// updated weight metrics and a snapshot on success.
func (e *Engine) TrainNow(ctx context.Context, trigger string) bool {
	if !e.model.Train() {
		return false
	}
	e.metrics.TrainingRunsTotal.WithLabelValues(trigger).Inc()
	e.publishWeightMetrics()

	if err := e.SnapshotWeights(ctx); err != nil {
		e.logger.Warn("weight snapshot failed", logging.Err(err))
	}

	w := e.model.Current()
	e.logger.Info("weights retrained",
		logging.String("trigger", trigger),
		logging.Float64("lexical", w.Lexical),
		logging.Float64("semantic", w.Semantic),
		logging.Float64("brand", w.Brand),
		logging.Float64("category", w.Category),
		logging.Float64("size", w.Size))
	return true
}

// Weights returns the live weight vector.
func (e *Engine) Weights() matching.WeightModel {
	return e.model.Current()
}

// SnapshotWeights persists the current weight vector to the shared cache so a
// restarted process can resume from learned weights.
func (e *Engine) SnapshotWeights(ctx context.Context) error {
	if e.shared == nil {
		return nil
	}
	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	w := e.model.Current()
	return e.shared.SetJSON(opCtx, weightsKey, w, 0)
}

// RestoreWeights loads a persisted weight snapshot, if one exists.  A missing
// snapshot is not an error; the engine keeps its defaults.
func (e *Engine) RestoreWeights(ctx context.Context) error {
	if e.shared == nil {
		return nil
	}
	opCtx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()

	var w matching.WeightModel
	err := e.shared.GetJSON(opCtx, weightsKey, &w)
	if err == redis.ErrCacheMiss {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotNotFound, "weight snapshot load failed")
	}
	e.model.SetWeights(w)
	e.publishWeightMetrics()
	e.logger.Info("weights restored from snapshot")
	return nil
}

// ClearCaches empties every cache tier and memo map.
func (e *Engine) ClearCaches(ctx context.Context) error {
	return e.cache.ClearAll(ctx)
}

// Stats returns the operational snapshot.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Weights:           e.model.Current(),
		FeedbackBuffered:  e.model.BufferLen(),
		LocalScoreEntries: e.cache.LocalLen(),
		MemoEntries:       e.cache.levMemo.len() + e.cache.bigramMemo.len() + e.cache.phoneticMemo.len(),
	}
}

func (e *Engine) publishWeightMetrics() {
	w := e.model.Current()
	e.metrics.ModelWeight.WithLabelValues("lexical").Set(w.Lexical)
	e.metrics.ModelWeight.WithLabelValues("semantic").Set(w.Semantic)
	e.metrics.ModelWeight.WithLabelValues("brand").Set(w.Brand)
	e.metrics.ModelWeight.WithLabelValues("category").Set(w.Category)
	e.metrics.ModelWeight.WithLabelValues("size").Set(w.Size)
}
