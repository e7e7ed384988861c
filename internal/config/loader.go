package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all service settings.
const envPrefix = "CARTWISE"

// newViper builds a pre-configured Viper instance: YAML file type, CARTWISE_
// env prefix, automatic env binding, and a key replacer that maps "." to "_"
// so nested keys like "redis.addr" resolve to "CARTWISE_REDIS_ADDR".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// Viper only unmarshals keys it knows about; zero-value defaults make every
	// supported key visible so CARTWISE_* overrides apply even without a file.
	for _, key := range configKeys {
		v.SetDefault(key, nil)
	}
	return v
}

// configKeys lists every key the service understands.  Keep in sync with the
// struct tags in config.go.
var configKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
	"server.shutdown_timeout",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
	"redis.write_timeout", "redis.key_prefix", "redis.op_timeout",
	"cache.local_capacity", "cache.local_ttl", "cache.score_ttl",
	"cache.feature_ttl", "cache.memo_capacity",
	"matching.batch_parallelism",
	"training.buffer_threshold", "training.interval", "training.learning_rate",
	"kafka.brokers", "kafka.group_id", "kafka.feedback_topic", "kafka.min_bytes",
	"kafka.max_bytes", "kafka.commit_interval", "kafka.enabled",
	"log.level", "log.format", "log.output_paths", "log.error_output_paths",
	"metrics.namespace", "metrics.enable_go_metrics", "metrics.enable_process_metrics",
}

// Load reads the YAML file at configPath, merges any CARTWISE_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CARTWISE_* environment variables
// with no config file required; the preferred strategy for containerised
// deployments.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  Intended for
// hot-reloading non-critical settings such as log level; callers are
// responsible for applying only the safe subset of changes at runtime.
//
// Watch is non-blocking; the background goroutine is managed by viper.  A
// changed file that fails to parse or validate does not invoke onChange, so
// the application never observes a broken configuration.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors are ignored here because callers Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on error.  Intended for main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
