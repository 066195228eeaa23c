package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mushroom-dashboard/internal/domain"
	salesvc "mushroom-dashboard/internal/service/sale"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerReader looks up existing customers.
type CustomerReader interface {
	Get(ctx context.Context, key string) (*domain.Customer, error)
}

// SaleRecorder records a sale through the full ledger path.
type SaleRecorder interface {
	Record(ctx context.Context, in salesvc.RecordInput) (*salesvc.RecordResult, error)
}

type saleSeed struct {
	Product string
	Qty     int
	Price   int64
	Payment string
	DaysAgo int
}

type customerSeed struct {
	Name  string
	Phone string
	Sales []saleSeed
}

var demo = []customerSeed{
	{
		Name:  "Partha",
		Phone: "9500591897",
		Sales: []saleSeed{
			{domain.ProductMushroom, 6, 60, domain.PaymentCash, 20},
			{domain.ProductMushroom, 7, 60, domain.PaymentGPay, 12},
			{domain.ProductSeeds, 2, 150, domain.PaymentCash, 12},
		},
	},
	{
		Name:  "Kumar",
		Phone: "9159659711",
		Sales: []saleSeed{
			{domain.ProductMushroom, 4, 55, domain.PaymentCredit, 3},
		},
	},
	{
		Name:  "Devi",
		Phone: "7010322499",
		Sales: []saleSeed{
			{domain.ProductMushroom, 12, 50, domain.PaymentGPay, 30},
			{domain.ProductMushroom, 9, 50, domain.PaymentCash, 8},
			{domain.ProductMushroom, 3, 45, domain.PaymentCash, 1},
		},
	},
}

// Apply records demo customers and their sales for manual testing. Customers that
// already have orders are left alone, so running it twice changes nothing.
func Apply(ctx context.Context, customers CustomerReader, sales SaleRecorder, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now().UTC()
	recorded := 0
	for _, c := range demo {
		existing, err := customers.Get(ctx, c.Phone)
		switch {
		case err == nil && existing.TotalOrders > 0:
			logger.Debug("seed customer already present", zap.String("customer_key", c.Phone))
			continue
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return recorded, fmt.Errorf("look up %s: %w", c.Phone, err)
		}

		for _, s := range c.Sales {
			date := now.AddDate(0, 0, -s.DaysAgo)
			_, err := sales.Record(ctx, salesvc.RecordInput{
				ProductType:   s.Product,
				Quantity:      s.Qty,
				PricePerUnit:  decimal.NewFromInt(s.Price),
				CustomerName:  c.Name,
				ContactNumber: c.Phone,
				PaymentType:   s.Payment,
				Date:          &date,
			})
			if err != nil {
				return recorded, fmt.Errorf("seed sale for %s: %w", c.Name, err)
			}
			recorded++
		}
	}
	return recorded, nil
}
