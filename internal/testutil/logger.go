package testutil

import (
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
)

// ObservedLogger returns a Logger whose entries are captured in the returned
// ObservedLogs, for asserting on log output in tests.
func ObservedLogger(level zapcore.Level) (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logging.NewLoggerFromCore(core), logs
}
