package engine

import (
	"context"
	"time"

	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
)

// Trainer periodically runs a weight training pass independent of request
// traffic, so buffered feedback is consumed even when the threshold is never
// crossed.
type Trainer struct {
	engine   *Engine
	interval time.Duration
	logger   logging.Logger
}

// NewTrainer builds a periodic trainer for engine.
func NewTrainer(engine *Engine, interval time.Duration, log logging.Logger) *Trainer {
	return &Trainer{
		engine:   engine,
		interval: interval,
		logger:   log.Named("trainer"),
	}
}

// Run blocks until ctx is cancelled, training on every tick.
func (t *Trainer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("training loop started", logging.Duration("interval", t.interval))
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("training loop stopped")
			return
		case <-ticker.C:
			if !t.engine.TrainNow(ctx, "interval") {
				t.logger.Debug("training skipped, buffer below minimum")
			}
		}
	}
}
