package notificationlog

import (
	"context"
	"sync"
	"time"

	"mushroom-dashboard/internal/db"
	"mushroom-dashboard/internal/domain"

	"github.com/google/uuid"
)

// Memory keeps notification logs in process, newest last.
type Memory struct {
	mu    sync.Mutex
	items []domain.NotificationLog
	now   func() time.Time
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty in-memory Repository.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Create(ctx context.Context, l domain.NotificationLog) (*domain.NotificationLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.NewString()
	l.CreatedAt = m.now().UTC()
	m.items = append(m.items, l)
	return &l, nil
}

func (m *Memory) List(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, db.Classify(err)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.NotificationLog, 0, min(limit, len(m.items)))
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}
