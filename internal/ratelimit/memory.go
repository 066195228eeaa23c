package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	ts     time.Time
}

// Memory is a process-local token bucket keyed by string.
type Memory struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewMemory returns an in-process Limiter.
func NewMemory(cfg Config) (*Memory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Memory{cfg: cfg, buckets: make(map[string]*bucket), now: time.Now}, nil
}

func (m *Memory) Allow(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if key == "" {
		return false, errors.New("rate limiter key is empty")
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(m.cfg.Burst), ts: now}
		m.buckets[key] = b
	} else {
		delta := now.Sub(b.ts).Seconds()
		if delta > 0 {
			b.tokens = math.Min(float64(m.cfg.Burst), b.tokens+delta*m.cfg.perSecond())
			b.ts = now
		}
	}
	m.evict(now)

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// evict drops buckets idle long enough to have refilled completely.
func (m *Memory) evict(now time.Time) {
	ttl := m.cfg.ttl()
	for k, b := range m.buckets {
		if now.Sub(b.ts) > ttl {
			delete(m.buckets, k)
		}
	}
}
