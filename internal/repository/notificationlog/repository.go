package notificationlog

import (
	"context"

	"mushroom-dashboard/internal/domain"
)

// Repository stores notification delivery attempts.
type Repository interface {
	Create(ctx context.Context, l domain.NotificationLog) (*domain.NotificationLog, error)
	// List returns the most recent attempts first.
	List(ctx context.Context, limit int) ([]domain.NotificationLog, error)
}

const defaultListLimit = 100
