// Package testutil provides in-memory test doubles shared across package
// tests: a map-backed shared cache and an observed logger.
package testutil

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cartwise/matchengine/internal/infrastructure/cache/redis"
	"github.com/cartwise/matchengine/pkg/errors"
)

// MemoryCache is a map-backed implementation of the shared cache contract.
// Setting Fail simulates a backend outage: every operation returns an error
// until it is cleared.
type MemoryCache struct {
	mu    sync.Mutex
	data  map[string]string
	fail  bool
	calls int
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

// SetFail toggles outage simulation.
func (m *MemoryCache) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Calls returns the number of operations attempted, including failed ones.
func (m *MemoryCache) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Len returns the number of stored entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *MemoryCache) enter() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return errors.New(errors.ErrCodeServiceUnavailable, "simulated cache outage")
	}
	return nil
}

func (m *MemoryCache) GetFloat(_ context.Context, key string) (float64, error) {
	if err := m.enter(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	val, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return 0, redis.ErrCacheMiss
	}
	return strconv.ParseFloat(val, 64)
}

func (m *MemoryCache) SetFloat(_ context.Context, key string, value float64, _ time.Duration) error {
	if err := m.enter(); err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = strconv.FormatFloat(value, 'g', -1, 64)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	if err := m.enter(); err != nil {
		return err
	}
	m.mu.Lock()
	val, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal([]byte(val), dest)
}

func (m *MemoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if err := m.enter(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = string(data)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	if err := m.enter(); err != nil {
		return err
	}
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	if err := m.enter(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryCache) Ping(_ context.Context) error {
	return m.enter()
}

var _ redis.Cache = (*MemoryCache)(nil)
