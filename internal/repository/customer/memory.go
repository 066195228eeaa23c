package customer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mushroom-dashboard/internal/db"
	"mushroom-dashboard/internal/domain"
)

// Memory is an in-process Repository. Mutations on one key are serialized by a
// per-key mutex; different keys proceed in parallel.
type Memory struct {
	mu    sync.Mutex
	items map[string]domain.Customer
	locks map[string]*sync.Mutex
	now   func() time.Time
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty in-memory Repository.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]domain.Customer),
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

func (m *Memory) keyLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

func (m *Memory) Get(ctx context.Context, key string) (*domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[key]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

func (m *Memory) Upsert(ctx context.Context, key string, fn Mutator) (*domain.Customer, error) {
	return m.mutate(ctx, key, true, fn)
}

func (m *Memory) Update(ctx context.Context, key string, fn Mutator) (*domain.Customer, error) {
	return m.mutate(ctx, key, false, fn)
}

func (m *Memory) mutate(ctx context.Context, key string, create bool, fn Mutator) (*domain.Customer, error) {
	l := m.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}

	m.mu.Lock()
	current, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		if !create {
			return nil, domain.ErrCustomerNotFound
		}
		now := m.now().UTC()
		current = domain.Customer{Key: key, CreatedAt: now, UpdatedAt: now}
	}

	next := current
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.Key = key
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	next.UpdatedAt = m.now().UTC()

	m.mu.Lock()
	m.items[key] = next
	m.mu.Unlock()
	return &next, nil
}

func (m *Memory) Register(ctx context.Context, key, name string) (*domain.Customer, error) {
	name = strings.TrimSpace(name)
	return m.Upsert(ctx, key, func(c *domain.Customer) error {
		if name != "" {
			c.Name = name
		}
		return nil
	})
}

func (m *Memory) List(ctx context.Context, filter ListFilter) ([]domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	needle := strings.ToLower(strings.TrimSpace(filter.Name))
	m.mu.Lock()
	out := make([]domain.Customer, 0, len(m.items))
	for _, c := range m.items {
		if needle == "" || strings.Contains(strings.ToLower(c.Name), needle) || strings.Contains(c.Key, needle) {
			out = append(out, c)
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return truncate(out, filter.Limit), nil
}

func (m *Memory) ListRewardPending(ctx context.Context, notifiedBefore time.Time, limit int) ([]domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	m.mu.Lock()
	var out []domain.Customer
	for _, c := range m.items {
		if c.FreeRewardsAvailable <= c.RewardsRedeemed {
			continue
		}
		if c.LastNotifiedAt != nil && !c.LastNotifiedAt.Before(notifiedBefore) {
			continue
		}
		out = append(out, c)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return truncate(out, limit), nil
}

func truncate(items []domain.Customer, limit int) []domain.Customer {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
