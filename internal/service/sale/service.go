package sale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/metrics"
	custrepo "mushroom-dashboard/internal/repository/customer"
	salerepo "mushroom-dashboard/internal/repository/sale"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderIDPrefix prefixes every generated order id.
const OrderIDPrefix = "TJP-"

type customerStore interface {
	Upsert(ctx context.Context, key string, fn custrepo.Mutator) (*domain.Customer, error)
}

type ledger interface {
	ApplyPurchase(ctx context.Context, key string, units int) (domain.LoyaltyResult, error)
	ReconcileFromHistory(ctx context.Context, key string, qualifyingSales []int) (*domain.Customer, error)
}

// Service records sales and forwards qualifying quantities to the loyalty ledger.
type Service struct {
	sales     salerepo.Repository
	customers customerStore
	ledger    ledger
	policy    domain.LoyaltyPolicy
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New creates a Service. logger and m may be nil.
func New(sales salerepo.Repository, customers customerStore, ledger ledger, policy domain.LoyaltyPolicy, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sales:     sales,
		customers: customers,
		ledger:    ledger,
		policy:    policy,
		logger:    logger.Named("sales"),
		metrics:   m,
		now:       time.Now,
	}
}

// Policy returns the loyalty qualification policy in use.
func (s *Service) Policy() domain.LoyaltyPolicy {
	return s.policy
}

// RecordInput mirrors the sale form of the dashboard.
type RecordInput struct {
	ProductType   string          `json:"productType"`
	Quantity      int             `json:"quantity"`
	Unit          string          `json:"unit"`
	PricePerUnit  decimal.Decimal `json:"pricePerUnit"`
	CustomerName  string          `json:"customerName"`
	ContactNumber string          `json:"contactNumber"`
	PaymentType   string          `json:"paymentType"`
	Date          *time.Time      `json:"date"`
	// OrderID replaces the generated order id. Imports set it so a replayed row
	// maps onto the sale it created the first time.
	OrderID string `json:"-"`
}

// RecordResult is the stored sale and, for qualifying sales, the ledger outcome.
type RecordResult struct {
	Sale    *domain.Sale          `json:"sale"`
	Loyalty *domain.LoyaltyResult `json:"loyaltyUpdate,omitempty"`
}

// Record persists a sale and applies its quantity to the ledger when it qualifies.
// If the ledger update fails the sale stays recorded and the error is returned;
// Reconcile repairs the counters.
func (s *Service) Record(ctx context.Context, in RecordInput) (*RecordResult, error) {
	sale, err := s.build(in)
	if err != nil {
		return nil, err
	}

	stored, err := s.store(ctx, sale)
	if err != nil {
		return nil, err
	}
	s.metrics.SaleRecorded(stored.ProductType, stored.PaymentType, stored.Quantity)

	res := &RecordResult{Sale: stored}
	if !stored.LoyaltyApplied {
		return res, nil
	}
	loyalty, err := s.ledger.ApplyPurchase(ctx, stored.CustomerKey, stored.Quantity)
	if err != nil {
		s.logger.Warn("sale stored but loyalty not applied",
			zap.String("order_id", stored.OrderID),
			zap.String("customer_key", stored.CustomerKey),
			zap.Error(err),
		)
		return res, fmt.Errorf("apply loyalty for %s: %w", stored.OrderID, err)
	}
	res.Loyalty = &loyalty
	return res, nil
}

// RecordHistorical stores a sale without touching the ledger. Used by imports that
// reconcile afterwards. An empty paymentStatus derives it from the payment type.
// A sale whose OrderID is already stored is returned with domain.ErrAlreadyExists
// and the customer is left untouched.
func (s *Service) RecordHistorical(ctx context.Context, in RecordInput, paymentStatus string) (*domain.Sale, error) {
	sale, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if in.OrderID != "" {
		existing, err := s.sales.GetByOrderID(ctx, sale.OrderID)
		switch {
		case err == nil:
			return existing, fmt.Errorf("%w: order %s", domain.ErrAlreadyExists, sale.OrderID)
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}
	switch paymentStatus {
	case "":
	case domain.PaymentStatusPaid, domain.PaymentStatusUnpaid:
		sale.PaymentStatus = paymentStatus
	default:
		return nil, fmt.Errorf("%w: paymentStatus must be Paid or Unpaid", domain.ErrInvalidInput)
	}
	return s.store(ctx, sale)
}

func (s *Service) store(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	_, err := s.customers.Upsert(ctx, sale.CustomerKey, func(c *domain.Customer) error {
		if c.Name == "" {
			c.Name = sale.CustomerName
		}
		c.TotalOrders++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("register customer: %w", err)
	}
	stored, err := s.sales.Create(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("store sale: %w", err)
	}
	return stored, nil
}

func (s *Service) build(in RecordInput) (domain.Sale, error) {
	productType := strings.TrimSpace(in.ProductType)
	if productType != domain.ProductMushroom && productType != domain.ProductSeeds {
		return domain.Sale{}, fmt.Errorf("%w: productType must be Mushroom or Seeds", domain.ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return domain.Sale{}, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if in.PricePerUnit.IsNegative() {
		return domain.Sale{}, fmt.Errorf("%w: pricePerUnit must not be negative", domain.ErrInvalidInput)
	}
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		return domain.Sale{}, fmt.Errorf("%w: customerName required", domain.ErrInvalidInput)
	}
	key, err := domain.NormalizeKey(in.ContactNumber)
	if err != nil {
		return domain.Sale{}, err
	}

	paymentType := strings.TrimSpace(in.PaymentType)
	if paymentType == "" {
		paymentType = domain.PaymentCash
	}
	status := domain.PaymentStatusPaid
	switch paymentType {
	case domain.PaymentCash, domain.PaymentGPay:
	case domain.PaymentCredit:
		status = domain.PaymentStatusUnpaid
	default:
		return domain.Sale{}, fmt.Errorf("%w: paymentType must be Cash, GPay or Credit", domain.ErrInvalidInput)
	}

	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "kg"
		if productType == domain.ProductMushroom {
			unit = "pockets"
		}
	}

	soldAt := s.now().UTC()
	if in.Date != nil && !in.Date.IsZero() {
		soldAt = in.Date.UTC()
	}

	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		orderID = OrderIDPrefix + ulid.MustNew(ulid.Timestamp(soldAt), ulid.DefaultEntropy()).String()
	}

	return domain.Sale{
		OrderID:        orderID,
		ProductType:    productType,
		Quantity:       in.Quantity,
		Unit:           unit,
		PricePerUnit:   in.PricePerUnit,
		TotalAmount:    in.PricePerUnit.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2),
		CustomerKey:    key,
		CustomerName:   name,
		PaymentType:    paymentType,
		PaymentStatus:  status,
		LoyaltyApplied: s.policy.Qualifies(productType, in.PricePerUnit),
		SoldAt:         soldAt,
	}, nil
}

// Settle marks a credit sale as paid. Settling a paid sale reports the current state
// with changed=false.
func (s *Service) Settle(ctx context.Context, id, settledBy string) (*domain.Sale, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, fmt.Errorf("%w: sale id required", domain.ErrInvalidInput)
	}
	if settledBy != domain.PaymentCash && settledBy != domain.PaymentGPay {
		return nil, false, fmt.Errorf("%w: settledBy must be Cash or GPay", domain.ErrInvalidInput)
	}
	sale, changed, err := s.sales.Settle(ctx, id, settledBy, s.now().UTC())
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.logger.Info("kadan settled", zap.String("order_id", sale.OrderID), zap.String("settled_by", settledBy))
	}
	return sale, changed, nil
}

// List returns sales matching filter, newest first.
func (s *Service) List(ctx context.Context, filter salerepo.ListFilter) ([]domain.Sale, error) {
	if filter.CustomerKey != "" {
		key, err := domain.NormalizeKey(filter.CustomerKey)
		if err != nil {
			return nil, err
		}
		filter.CustomerKey = key
	}
	return s.sales.List(ctx, filter)
}

// Kadan returns the outstanding credit sales, newest first.
func (s *Service) Kadan(ctx context.Context) ([]domain.Sale, error) {
	return s.sales.List(ctx, salerepo.ListFilter{PaymentStatus: domain.PaymentStatusUnpaid})
}

// Summary aggregates revenue between from (inclusive) and to (exclusive).
func (s *Service) Summary(ctx context.Context, from, to *time.Time) (*domain.SalesSummary, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, fmt.Errorf("%w: from must be before to", domain.ErrInvalidInput)
	}
	return s.sales.Summary(ctx, from, to)
}

// Reconcile rebuilds a customer's loyalty counters from the stored sales.
func (s *Service) Reconcile(ctx context.Context, rawKey string) (*domain.Customer, error) {
	key, err := domain.NormalizeKey(rawKey)
	if err != nil {
		return nil, err
	}
	quantities, err := s.sales.QualifyingQuantities(ctx, key, s.policy)
	if err != nil {
		return nil, fmt.Errorf("load sales history: %w", err)
	}
	return s.ledger.ReconcileFromHistory(ctx, key, quantities)
}
