package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/engine"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/prometheus"
)

// newScoreCmd scores one pair offline with default weights and no shared
// cache.  Handy for eyeballing the signal breakdown while tuning vocabulary.
func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <query> <product>",
		Short: "Score a single query/product pair offline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)

			log := logging.NewNopLogger()
			collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
				Namespace: cfg.Metrics.Namespace,
			}, log)
			if err != nil {
				return err
			}

			eng := engine.New(cfg, nil, log, prometheus.NewEngineMetrics(collector))
			m := eng.ScoreDetailed(context.Background(), args[0], args[1])

			fmt.Printf("query:    %s\n", args[0])
			fmt.Printf("product:  %s\n", args[1])
			fmt.Printf("lexical:  %.4f\n", m.Lexical)
			fmt.Printf("semantic: %.4f\n", m.Semantic)
			fmt.Printf("brand:    %.4f\n", m.Brand)
			fmt.Printf("category: %.4f\n", m.Category)
			fmt.Printf("size:     %.4f\n", m.Size)
			fmt.Printf("overall:  %.4f\n", m.Overall)
			return nil
		},
	}
}
