package sale

import (
	"context"
	"testing"
	"time"

	"mushroom-dashboard/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSale(orderID, key, product string, qty int, price int64, status string, soldAt time.Time) domain.Sale {
	p := decimal.NewFromInt(price)
	return domain.Sale{
		OrderID:       orderID,
		ProductType:   product,
		Quantity:      qty,
		Unit:          "pockets",
		PricePerUnit:  p,
		TotalAmount:   p.Mul(decimal.NewFromInt(int64(qty))),
		CustomerKey:   key,
		CustomerName:  "Test",
		PaymentType:   domain.PaymentCash,
		PaymentStatus: status,
		SoldAt:        soldAt,
	}
}

func TestMemory_CreateRejectsDuplicateOrderID(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	now := time.Now()

	s, err := repo.Create(ctx, newSale("TJP-1", "9500591897", domain.ProductMushroom, 2, 60, domain.PaymentStatusPaid, now))
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	_, err = repo.Create(ctx, newSale("TJP-1", "9500591897", domain.ProductMushroom, 2, 60, domain.PaymentStatusPaid, now))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := repo.GetByOrderID(ctx, "TJP-1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	_, err = repo.GetByOrderID(ctx, "TJP-2")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemory_SettleIsOneWayAndIdempotent(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	s, err := repo.Create(ctx, newSale("TJP-1", "9500591897", domain.ProductMushroom, 2, 60, domain.PaymentStatusUnpaid, time.Now()))
	require.NoError(t, err)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	settled, changed, err := repo.Settle(ctx, s.ID, domain.PaymentGPay, at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.PaymentStatusPaid, settled.PaymentStatus)
	assert.Equal(t, domain.PaymentGPay, settled.SettledBy)

	again, changed, err := repo.Settle(ctx, s.ID, domain.PaymentCash, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, domain.PaymentGPay, again.SettledBy)
	assert.True(t, again.SettledAt.Equal(at))

	_, _, err = repo.Settle(ctx, "missing", domain.PaymentCash, at)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemory_ListFiltersAndOrders(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	for i, s := range []domain.Sale{
		newSale("A", "1111111111", domain.ProductMushroom, 1, 60, domain.PaymentStatusPaid, base),
		newSale("B", "1111111111", domain.ProductSeeds, 2, 120, domain.PaymentStatusUnpaid, base.Add(24*time.Hour)),
		newSale("C", "2222222222", domain.ProductMushroom, 3, 60, domain.PaymentStatusUnpaid, base.Add(48*time.Hour)),
	} {
		_, err := repo.Create(ctx, s)
		require.NoError(t, err, "sale %d", i)
	}

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "C", all[0].OrderID)
	assert.Equal(t, "A", all[2].OrderID)

	unpaid, err := repo.List(ctx, ListFilter{PaymentStatus: domain.PaymentStatusUnpaid})
	require.NoError(t, err)
	assert.Len(t, unpaid, 2)

	from := base.Add(12 * time.Hour)
	to := base.Add(36 * time.Hour)
	ranged, err := repo.List(ctx, ListFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "B", ranged[0].OrderID)

	mine, err := repo.List(ctx, ListFilter{CustomerKey: "1111111111", ProductType: domain.ProductMushroom})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "A", mine[0].OrderID)
}

func TestMemory_QualifyingQuantitiesAndSummary(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	for _, s := range []domain.Sale{
		newSale("A", "1111111111", domain.ProductMushroom, 4, 60, domain.PaymentStatusPaid, base),
		newSale("B", "1111111111", domain.ProductMushroom, 9, 40, domain.PaymentStatusPaid, base.Add(time.Hour)),
		newSale("C", "1111111111", domain.ProductSeeds, 2, 150, domain.PaymentStatusUnpaid, base.Add(2*time.Hour)),
		newSale("D", "1111111111", domain.ProductMushroom, 7, 50, domain.PaymentStatusUnpaid, base.Add(3*time.Hour)),
		newSale("E", "2222222222", domain.ProductMushroom, 5, 60, domain.PaymentStatusPaid, base.Add(4*time.Hour)),
	} {
		_, err := repo.Create(ctx, s)
		require.NoError(t, err)
	}

	qs, err := repo.QualifyingQuantities(ctx, "1111111111", domain.DefaultLoyaltyPolicy())
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7}, qs)

	sum, err := repo.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.SalesCount)
	assert.Equal(t, 25, sum.UnitsByProduct[domain.ProductMushroom])
	assert.True(t, sum.Revenue.Equal(decimal.NewFromInt(240+360+300+350+300)), "revenue %s", sum.Revenue)
	assert.True(t, sum.OutstandingCredit.Equal(decimal.NewFromInt(300+350)), "outstanding %s", sum.OutstandingCredit)
	assert.True(t, sum.RevenueByProduct[domain.ProductSeeds].Equal(decimal.NewFromInt(300)))
}

func TestMemory_CancelledContextIsStorageUnavailable(t *testing.T) {
	repo := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, newSale("TJP-1", "9500591897", domain.ProductMushroom, 2, 60, domain.PaymentStatusPaid, time.Now()))
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, _, err = repo.Settle(ctx, "any", domain.PaymentCash, time.Now())
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = repo.QualifyingQuantities(ctx, "9500591897", domain.DefaultLoyaltyPolicy())
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
