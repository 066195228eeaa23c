package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product types sold by the farm.
const (
	ProductMushroom = "Mushroom"
	ProductSeeds    = "Seeds"
)

// Payment types accepted at the counter. Credit sales start Unpaid (kadan).
const (
	PaymentCash   = "Cash"
	PaymentGPay   = "GPay"
	PaymentCredit = "Credit"
)

// Payment statuses. The only transition is Unpaid -> Paid.
const (
	PaymentStatusPaid   = "Paid"
	PaymentStatusUnpaid = "Unpaid"
)

// Sale is an immutable record of one transaction. Only the settlement fields change after creation.
type Sale struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"orderId"`
	ProductType    string          `json:"productType"`
	Quantity       int             `json:"quantity"`
	Unit           string          `json:"unit"`
	PricePerUnit   decimal.Decimal `json:"pricePerUnit"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	CustomerKey    string          `json:"customerKey"`
	CustomerName   string          `json:"customerName"`
	PaymentType    string          `json:"paymentType"`
	PaymentStatus  string          `json:"paymentStatus"`
	SettledBy      string          `json:"settledBy,omitempty"`
	SettledAt      *time.Time      `json:"settledAt,omitempty"`
	LoyaltyApplied bool            `json:"loyaltyApplied"`
	SoldAt         time.Time       `json:"soldAt"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// LoyaltyPolicy decides which sales accrue loyalty units.
type LoyaltyPolicy struct {
	ProductType  string
	MinUnitPrice decimal.Decimal
}

// DefaultLoyaltyPolicy counts mushroom pockets sold at 50 or more per unit.
func DefaultLoyaltyPolicy() LoyaltyPolicy {
	return LoyaltyPolicy{ProductType: ProductMushroom, MinUnitPrice: decimal.NewFromInt(50)}
}

// Qualifies reports whether the sale accrues loyalty units.
func (p LoyaltyPolicy) Qualifies(productType string, pricePerUnit decimal.Decimal) bool {
	return productType == p.ProductType && pricePerUnit.GreaterThanOrEqual(p.MinUnitPrice)
}

// SalesSummary aggregates revenue over a period.
type SalesSummary struct {
	From              *time.Time                 `json:"from,omitempty"`
	To                *time.Time                 `json:"to,omitempty"`
	Revenue           decimal.Decimal            `json:"revenue"`
	RevenueByProduct  map[string]decimal.Decimal `json:"revenueByProduct"`
	UnitsByProduct    map[string]int             `json:"unitsByProduct"`
	OutstandingCredit decimal.Decimal            `json:"outstandingCredit"`
	SalesCount        int                        `json:"salesCount"`
}
