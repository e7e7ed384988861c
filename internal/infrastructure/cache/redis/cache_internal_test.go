package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
)

func TestJitterTTL(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitterTTL(0))

	ttl := time.Hour
	for i := 0; i < 100; i++ {
		j := jitterTTL(ttl)
		assert.GreaterOrEqual(t, j, time.Duration(float64(ttl)*0.9))
		assert.LessOrEqual(t, j, time.Duration(float64(ttl)*1.1))
	}
}

func TestNewCache_PrefixOption(t *testing.T) {
	c := NewCache(&Client{}, logging.NewNopLogger(), WithPrefix("test:")).(*redisCache)
	assert.Equal(t, "test:scores:abc", c.fullKey("scores:abc"))

	d := NewCache(&Client{}, logging.NewNopLogger()).(*redisCache)
	assert.Equal(t, "matchengine:scores:abc", d.fullKey("scores:abc"))
}
