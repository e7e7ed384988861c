// Package kafka ingests feedback events from the recommendation pipeline and
// feeds them into the adaptive weight model.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/domain/matching"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/pkg/errors"
)

// FeedbackSink receives decoded feedback events.  Implemented by the engine.
type FeedbackSink interface {
	RecordFeedback(ctx context.Context, ev matching.FeedbackEvent) error
}

// Consumer reads feedback events from the configured topic.  Malformed
// messages are logged and skipped; they are still committed so a poison
// message can never wedge the consumer group.
type Consumer struct {
	reader *kafka.Reader
	sink   FeedbackSink
	logger logging.Logger
}

// NewConsumer builds a Consumer for the feedback topic.  The reader dials
// lazily; broker connectivity errors surface from Run.
func NewConsumer(cfg config.KafkaConfig, sink FeedbackSink, log logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.FeedbackTopic,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: cfg.CommitInterval,
	})
	return &Consumer{
		reader: reader,
		sink:   sink,
		logger: log.Named("kafka"),
	}
}

// parseFeedback decodes and validates one message payload.
func parseFeedback(data []byte) (matching.FeedbackEvent, error) {
	var ev matching.FeedbackEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, errors.Wrap(err, errors.ErrCodeFeedbackMalformed, "feedback event is not valid JSON")
	}
	if !ev.Label.Valid() {
		return ev, errors.New(errors.ErrCodeFeedbackMalformed, "unknown feedback label").
			WithDetail(string(ev.Label))
	}
	if ev.Query == "" || ev.ProductName == "" {
		return ev, errors.New(errors.ErrCodeFeedbackMalformed, "feedback event missing query or product")
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev, nil
}

// Run consumes until ctx is cancelled.  Returns nil on clean shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("feedback consumer started",
		logging.String("topic", c.reader.Config().Topic),
		logging.String("group_id", c.reader.Config().GroupID))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("feedback consumer stopped")
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "feedback fetch failed")
		}

		ev, err := parseFeedback(msg.Value)
		if err != nil {
			c.logger.Warn("skipping malformed feedback event",
				logging.Int64("offset", msg.Offset), logging.Err(err))
		} else if err := c.sink.RecordFeedback(ctx, ev); err != nil {
			c.logger.Warn("feedback event rejected",
				logging.Int64("offset", msg.Offset), logging.Err(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("feedback commit failed", logging.Err(err))
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
