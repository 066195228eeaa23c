package sale

import (
	"context"
	"sort"
	"sync"
	"time"

	"mushroom-dashboard/internal/db"
	"mushroom-dashboard/internal/domain"

	"github.com/google/uuid"
)

// Memory is an in-process Repository used by tests and DB_DSN=memory.
type Memory struct {
	mu    sync.Mutex
	items map[string]domain.Sale
	now   func() time.Time
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty in-memory Repository.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]domain.Sale), now: time.Now}
}

func (m *Memory) Create(ctx context.Context, s domain.Sale) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.OrderID == s.OrderID {
			return nil, domain.ErrAlreadyExists
		}
	}
	s.ID = uuid.NewString()
	s.CreatedAt = m.now().UTC()
	if s.SoldAt.IsZero() {
		s.SoldAt = s.CreatedAt
	}
	m.items[s.ID] = s
	return &s, nil
}

func (m *Memory) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *Memory) GetByOrderID(ctx context.Context, orderID string) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.items {
		if s.OrderID == orderID {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) List(ctx context.Context, filter ListFilter) ([]domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	out := m.filter(func(s domain.Sale) bool {
		return inRange(s.SoldAt, filter.From, filter.To) &&
			(filter.ProductType == "" || s.ProductType == filter.ProductType) &&
			(filter.PaymentStatus == "" || s.PaymentStatus == filter.PaymentStatus) &&
			(filter.CustomerKey == "" || s.CustomerKey == filter.CustomerKey)
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].SoldAt.Equal(out[j].SoldAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SoldAt.After(out[j].SoldAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Settle(ctx context.Context, id, settledBy string, at time.Time) (*domain.Sale, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, db.Classify(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if s.PaymentStatus != domain.PaymentStatusUnpaid {
		return &s, false, nil
	}
	at = at.UTC()
	s.PaymentStatus = domain.PaymentStatusPaid
	s.SettledBy = settledBy
	s.SettledAt = &at
	m.items[id] = s
	return &s, true, nil
}

func (m *Memory) QualifyingQuantities(ctx context.Context, customerKey string, policy domain.LoyaltyPolicy) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	matched := m.filter(func(s domain.Sale) bool {
		return s.CustomerKey == customerKey && policy.Qualifies(s.ProductType, s.PricePerUnit)
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].SoldAt.Before(matched[j].SoldAt) })
	out := make([]int, 0, len(matched))
	for _, s := range matched {
		out = append(out, s.Quantity)
	}
	return out, nil
}

func (m *Memory) Summary(ctx context.Context, from, to *time.Time) (*domain.SalesSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	sum := newSummary(from, to)
	for _, s := range m.filter(func(s domain.Sale) bool { return inRange(s.SoldAt, from, to) }) {
		sum.SalesCount++
		sum.UnitsByProduct[s.ProductType] += s.Quantity
		sum.RevenueByProduct[s.ProductType] = sum.RevenueByProduct[s.ProductType].Add(s.TotalAmount)
		sum.Revenue = sum.Revenue.Add(s.TotalAmount)
		if s.PaymentStatus == domain.PaymentStatusUnpaid {
			sum.OutstandingCredit = sum.OutstandingCredit.Add(s.TotalAmount)
		}
	}
	return sum, nil
}

func (m *Memory) filter(keep func(domain.Sale) bool) []domain.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Sale
	for _, s := range m.items {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}
