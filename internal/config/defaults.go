package config

import "time"

// ApplyDefaults fills in every unset field of cfg with the platform default.
// It never overrides a value the operator set explicitly.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "matchengine:"
	}
	if cfg.Redis.OpTimeout == 0 {
		cfg.Redis.OpTimeout = 250 * time.Millisecond
	}

	// Cache
	if cfg.Cache.LocalCapacity == 0 {
		cfg.Cache.LocalCapacity = 10000
	}
	if cfg.Cache.LocalTTL == 0 {
		cfg.Cache.LocalTTL = time.Hour
	}
	if cfg.Cache.ScoreTTL == 0 {
		cfg.Cache.ScoreTTL = time.Hour
	}
	if cfg.Cache.FeatureTTL == 0 {
		cfg.Cache.FeatureTTL = 24 * time.Hour
	}
	if cfg.Cache.MemoCapacity == 0 {
		cfg.Cache.MemoCapacity = 8192
	}

	// Matching
	if cfg.Matching.BatchParallelism == 0 {
		cfg.Matching.BatchParallelism = 100
	}

	// Training
	if cfg.Training.BufferThreshold == 0 {
		cfg.Training.BufferThreshold = 100
	}
	if cfg.Training.Interval == 0 {
		cfg.Training.Interval = time.Hour
	}
	if cfg.Training.LearningRate == 0 {
		cfg.Training.LearningRate = 0.01
	}

	// Kafka
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "matchengine"
	}
	if cfg.Kafka.FeedbackTopic == "" {
		cfg.Kafka.FeedbackTopic = "match.feedback"
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = 1
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10 * 1024 * 1024
	}
	if cfg.Kafka.CommitInterval == 0 {
		cfg.Kafka.CommitInterval = time.Second
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	// Metrics
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "matchengine"
	}
}
