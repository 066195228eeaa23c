package sale

import (
	"context"
	"testing"
	"time"

	"mushroom-dashboard/internal/dbtest"
	"mushroom-dashboard/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_SaleLifecycle_Integration(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	if _, err := pool.Exec(ctx, `INSERT INTO customers (customer_key, name) VALUES ('9500591897', 'Partha')`); err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	repo := NewPostgres(pool, nil)
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	paid, err := repo.Create(ctx, newSale("TJP-A", "9500591897", domain.ProductMushroom, 4, 60, domain.PaymentStatusPaid, base))
	require.NoError(t, err)
	assert.True(t, paid.TotalAmount.Equal(decimal.NewFromInt(240)), "total %s", paid.TotalAmount)

	credit, err := repo.Create(ctx, newSale("TJP-B", "9500591897", domain.ProductMushroom, 7, 50, domain.PaymentStatusUnpaid, base.Add(time.Hour)))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newSale("TJP-B", "9500591897", domain.ProductMushroom, 1, 50, domain.PaymentStatusPaid, base))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	byOrder, err := repo.GetByOrderID(ctx, "TJP-B")
	require.NoError(t, err)
	assert.Equal(t, credit.ID, byOrder.ID)
	_, err = repo.GetByOrderID(ctx, "TJP-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	kadan, err := repo.List(ctx, ListFilter{PaymentStatus: domain.PaymentStatusUnpaid})
	require.NoError(t, err)
	require.Len(t, kadan, 1)
	assert.Equal(t, credit.ID, kadan[0].ID)

	settled, changed, err := repo.Settle(ctx, credit.ID, domain.PaymentCash, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.PaymentStatusPaid, settled.PaymentStatus)

	_, changed, err = repo.Settle(ctx, credit.ID, domain.PaymentGPay, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = repo.Settle(ctx, "not-a-uuid", domain.PaymentCash, base)
	require.ErrorIs(t, err, domain.ErrNotFound)

	qs, err := repo.QualifyingQuantities(ctx, "9500591897", domain.DefaultLoyaltyPolicy())
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7}, qs)

	sum, err := repo.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.SalesCount)
	assert.True(t, sum.Revenue.Equal(decimal.NewFromInt(590)), "revenue %s", sum.Revenue)
	assert.True(t, sum.OutstandingCredit.IsZero())
}
