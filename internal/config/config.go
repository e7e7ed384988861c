// Package config defines all configuration structures for the matchengine
// service.  No I/O or parsing logic lives here, only plain data types and
// validation; loading is in loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"time"

	"github.com/cartwise/matchengine/internal/domain/matching"
)

// ServerConfig holds the operational HTTP server tunables (health, stats,
// metrics endpoints).
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig holds connection parameters for the shared cache tier.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`

	// OpTimeout bounds every cache round trip made on the scoring path.
	// On expiry the engine falls through to direct computation.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// CacheConfig holds the sizing and TTL parameters for the engine's cache tiers
// and memoization maps.
type CacheConfig struct {
	LocalCapacity int           `mapstructure:"local_capacity"`
	LocalTTL      time.Duration `mapstructure:"local_ttl"`
	ScoreTTL      time.Duration `mapstructure:"score_ttl"`
	FeatureTTL    time.Duration `mapstructure:"feature_ttl"`
	MemoCapacity  int           `mapstructure:"memo_capacity"`
}

// MatchingConfig holds scoring and batch parameters.
type MatchingConfig struct {
	// BatchParallelism bounds the number of pairs scored concurrently in a batch.
	BatchParallelism int `mapstructure:"batch_parallelism"`
}

// TrainingConfig holds adaptive-weight training parameters.
type TrainingConfig struct {
	// BufferThreshold triggers a synchronous training run when the feedback
	// buffer reaches this size.  Minimum effective value is MinTrainEvents.
	BufferThreshold int `mapstructure:"buffer_threshold"`

	// Interval is the period of the background training ticker.
	Interval time.Duration `mapstructure:"interval"`

	// LearningRate is the fixed step size of the online update rule.
	LearningRate float64 `mapstructure:"learning_rate"`
}

// KafkaConfig holds the feedback-consumer connection parameters.
type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	GroupID        string        `mapstructure:"group_id"`
	FeedbackTopic  string        `mapstructure:"feedback_topic"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
	Enabled        bool          `mapstructure:"enabled"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Namespace            string `mapstructure:"namespace"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
}

// Config is the root configuration for the matchengine service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Matching MatchingConfig `mapstructure:"matching"`
	Training TrainingConfig `mapstructure:"training"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	if c.Cache.LocalCapacity <= 0 {
		return fmt.Errorf("cache.local_capacity must be positive, got %d", c.Cache.LocalCapacity)
	}
	if c.Cache.MemoCapacity <= 0 {
		return fmt.Errorf("cache.memo_capacity must be positive, got %d", c.Cache.MemoCapacity)
	}
	if c.Matching.BatchParallelism <= 0 {
		return fmt.Errorf("matching.batch_parallelism must be positive, got %d", c.Matching.BatchParallelism)
	}
	if c.Training.LearningRate <= 0 || c.Training.LearningRate >= 1 {
		return fmt.Errorf("training.learning_rate must be in (0, 1), got %g", c.Training.LearningRate)
	}
	if c.Training.BufferThreshold < matching.MinTrainEvents {
		return fmt.Errorf("training.buffer_threshold must be at least %d, got %d",
			matching.MinTrainEvents, c.Training.BufferThreshold)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must be set when kafka.enabled is true")
	}
	return nil
}
