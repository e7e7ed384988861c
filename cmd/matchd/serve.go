package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/engine"
	redisinfra "github.com/cartwise/matchengine/internal/infrastructure/cache/redis"
	"github.com/cartwise/matchengine/internal/infrastructure/messaging/kafka"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/cartwise/matchengine/internal/interfaces/http"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the matching service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromEnv()
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.NewLogger(logging.Config{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		return err
	}
	log = log.Named("matchd")
	log.Info("starting", logging.String("version", version))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableGoMetrics:      cfg.Metrics.EnableGoMetrics,
		EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
	}, log)
	if err != nil {
		return err
	}
	metrics := prometheus.NewEngineMetrics(collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath != "" {
		config.Watch(configPath, func(_ *config.Config) {
			log.Info("config file changed on disk; restart to apply")
		})
	}

	// The shared cache tier is optional: a failed connection degrades to
	// in-process caching rather than refusing to start.
	var sharedCache redisinfra.Cache
	var pinger httpserver.Pinger
	client, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		log.Warn("shared cache unavailable, running in-process only", logging.Err(err))
	} else {
		defer client.Close()
		sharedCache = redisinfra.NewCache(client, log, redisinfra.WithPrefix(cfg.Redis.KeyPrefix))
		pinger = client
	}

	eng := engine.New(cfg, sharedCache, log, metrics)
	if err := eng.RestoreWeights(ctx); err != nil {
		log.Warn("weight restore failed, using defaults", logging.Err(err))
	}

	trainer := engine.NewTrainer(eng, cfg.Training.Interval, log)
	go trainer.Run(ctx)

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, eng, log)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("feedback consumer exited", logging.Err(err))
			}
		}()
	}

	srv := httpserver.NewServer(cfg.Server, eng, pinger, collector, log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logging.Err(err))
	}
	if err := eng.SnapshotWeights(shutdownCtx); err != nil {
		log.Warn("final weight snapshot failed", logging.Err(err))
	}
	log.Info("stopped")
	return nil
}
