package prometheus

// EngineMetrics holds all matching-engine metrics.
type EngineMetrics struct {
	// Scoring
	MatchRequestsTotal CounterVec
	ScoreDuration      HistogramVec
	ScoreOverall       HistogramVec

	// Cache (labelled by tier: "local" | "shared")
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	CacheErrorsTotal CounterVec

	// Batch coordination
	BatchPairsTotal   CounterVec
	BatchDuration     HistogramVec
	BatchCacheHitRate GaugeVec

	// Adaptive weights
	FeedbackEventsTotal CounterVec
	TrainingRunsTotal   CounterVec
	ModelWeight         GaugeVec
}

var (
	// DefaultScoreDurationBuckets covers sub-millisecond cached hits up to
	// multi-second cold batches.
	DefaultScoreDurationBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1}
	DefaultBatchDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultScoreValueBuckets    = []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1}
)

// NewEngineMetrics registers all engine metrics and returns the handle struct.
func NewEngineMetrics(collector MetricsCollector) *EngineMetrics {
	m := &EngineMetrics{}

	m.MatchRequestsTotal = collector.RegisterCounter("match_requests_total", "Scoring requests", "source")
	m.ScoreDuration = collector.RegisterHistogram("score_duration_seconds", "Per-pair scoring duration", DefaultScoreDurationBuckets, "cached")
	m.ScoreOverall = collector.RegisterHistogram("score_overall", "Distribution of overall match scores", DefaultScoreValueBuckets, "source")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "tier")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "tier")
	m.CacheErrorsTotal = collector.RegisterCounter("cache_errors_total", "Cache backend errors", "tier")

	m.BatchPairsTotal = collector.RegisterCounter("batch_pairs_total", "Query-product pairs scored in batches")
	m.BatchDuration = collector.RegisterHistogram("batch_duration_seconds", "Batch matching duration", DefaultBatchDurationBuckets)
	m.BatchCacheHitRate = collector.RegisterGauge("batch_cache_hit_rate", "Cache hit rate of the most recent batch")

	m.FeedbackEventsTotal = collector.RegisterCounter("feedback_events_total", "Feedback events recorded", "label")
	m.TrainingRunsTotal = collector.RegisterCounter("training_runs_total", "Weight training runs", "trigger")
	m.ModelWeight = collector.RegisterGauge("model_weight", "Current weight per similarity signal", "signal")

	return m
}
