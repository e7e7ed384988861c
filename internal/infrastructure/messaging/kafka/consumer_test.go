package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/domain/matching"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/pkg/errors"
)

func TestParseFeedback_Valid(t *testing.T) {
	payload := []byte(`{
		"query": "milk",
		"product_name": "Great Value Whole Milk",
		"score": 0.82,
		"label": "positive",
		"timestamp": "2026-08-29T10:00:00Z"
	}`)

	ev, err := parseFeedback(payload)
	require.NoError(t, err)
	assert.Equal(t, "milk", ev.Query)
	assert.Equal(t, "Great Value Whole Milk", ev.ProductName)
	assert.Equal(t, 0.82, ev.Score)
	assert.Equal(t, matching.LabelPositive, ev.Label)
}

func TestParseFeedback_FillsMissingTimestamp(t *testing.T) {
	ev, err := parseFeedback([]byte(`{"query":"q","product_name":"p","score":0.5,"label":"neutral"}`))
	require.NoError(t, err)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestParseFeedback_Malformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":  `{not json`,
		"bad label":     `{"query":"q","product_name":"p","score":0.5,"label":"meh"}`,
		"missing query": `{"product_name":"p","score":0.5,"label":"positive"}`,
	}
	for name, payload := range cases {
		_, err := parseFeedback([]byte(payload))
		require.Error(t, err, name)
		assert.True(t, errors.IsCode(err, errors.ErrCodeFeedbackMalformed), name)
	}
}

func TestNewConsumer_CloseWithoutRun(t *testing.T) {
	cfg := config.KafkaConfig{
		Brokers:       []string{"localhost:9092"},
		GroupID:       "matchengine",
		FeedbackTopic: "match.feedback",
		MinBytes:      1,
		MaxBytes:      1 << 20,
	}
	c := NewConsumer(cfg, nil, logging.NewNopLogger())
	require.NotNil(t, c)
	assert.NoError(t, c.Close())
}
