package sale

import (
	"context"
	"time"

	"mushroom-dashboard/internal/domain"
)

// ListFilter narrows List results. Zero values mean "any".
type ListFilter struct {
	From          *time.Time
	To            *time.Time
	ProductType   string
	PaymentStatus string
	CustomerKey   string
	Limit         int
}

// Repository persists sales.
type Repository interface {
	Create(ctx context.Context, s domain.Sale) (*domain.Sale, error)
	GetByID(ctx context.Context, id string) (*domain.Sale, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Sale, error)
	// List returns sales newest first.
	List(ctx context.Context, filter ListFilter) ([]domain.Sale, error)
	// Settle moves an Unpaid sale to Paid. It reports false with the current state when
	// the sale was already paid.
	Settle(ctx context.Context, id, settledBy string, at time.Time) (*domain.Sale, bool, error)
	// QualifyingQuantities returns the quantity of every sale for the customer that accrues loyalty.
	QualifyingQuantities(ctx context.Context, customerKey string, policy domain.LoyaltyPolicy) ([]int, error)
	Summary(ctx context.Context, from, to *time.Time) (*domain.SalesSummary, error)
}

const defaultListLimit = 500
