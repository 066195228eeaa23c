package customer

import (
	"context"
	"time"

	"mushroom-dashboard/internal/domain"
)

// Mutator changes a locked customer record. Returning an error aborts the write.
type Mutator func(c *domain.Customer) error

// ListFilter narrows List results.
type ListFilter struct {
	Name  string
	Limit int
}

// Repository persists customers. Upsert and Update are atomic per key:
// concurrent calls for the same key are applied one after another.
type Repository interface {
	Get(ctx context.Context, key string) (*domain.Customer, error)
	// Upsert creates the record on first use before applying fn.
	Upsert(ctx context.Context, key string, fn Mutator) (*domain.Customer, error)
	// Update applies fn to an existing record or fails with domain.ErrCustomerNotFound.
	Update(ctx context.Context, key string, fn Mutator) (*domain.Customer, error)
	Register(ctx context.Context, key, name string) (*domain.Customer, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Customer, error)
	ListRewardPending(ctx context.Context, notifiedBefore time.Time, limit int) ([]domain.Customer, error)
}

const defaultListLimit = 200
