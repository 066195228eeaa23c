package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mushroom-dashboard/internal/db"
	"mushroom-dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const saleColumns = `id::text, order_id, product_type, quantity, unit, price_per_unit::text, total_amount::text,
       customer_key, customer_name, payment_type, payment_status, coalesce(settled_by, ''), settled_at,
       loyalty_applied, sold_at, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("sale_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, s domain.Sale) (*domain.Sale, error) {
	q := `
INSERT INTO sales (
    order_id, product_type, quantity, unit, price_per_unit, total_amount, customer_key, customer_name,
    payment_type, payment_status, loyalty_applied, sold_at
) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10, $11, $12)
RETURNING ` + saleColumns
	out, err := scanSale(r.pool.QueryRow(ctx, q,
		s.OrderID,
		s.ProductType,
		s.Quantity,
		s.Unit,
		s.PricePerUnit.String(),
		s.TotalAmount.String(),
		s.CustomerKey,
		s.CustomerName,
		s.PaymentType,
		s.PaymentStatus,
		s.LoyaltyApplied,
		s.SoldAt,
	))
	if err != nil {
		return nil, r.fail("create", s.OrderID, err)
	}
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	s, err := scanSale(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, r.fail("get", id, err)
	}
	return s, nil
}

func (r *postgresRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Sale, error) {
	q := `SELECT ` + saleColumns + ` FROM sales WHERE order_id = $1`
	s, err := scanSale(r.pool.QueryRow(ctx, q, orderID))
	if err != nil {
		return nil, r.fail("get by order id", orderID, err)
	}
	return s, nil
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Sale, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := `SELECT ` + saleColumns + ` FROM sales
WHERE ($1::timestamptz IS NULL OR sold_at >= $1)
  AND ($2::timestamptz IS NULL OR sold_at < $2)
  AND ($3 = '' OR product_type = $3)
  AND ($4 = '' OR payment_status = $4)
  AND ($5 = '' OR customer_key = $5)
ORDER BY sold_at DESC, created_at DESC
LIMIT $6`
	rows, err := r.pool.Query(ctx, q, filter.From, filter.To, filter.ProductType, filter.PaymentStatus, filter.CustomerKey, limit)
	if err != nil {
		return nil, r.fail("list", "", err)
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, r.fail("scan", "", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("rows", "", err)
	}
	return out, nil
}

func (r *postgresRepo) Settle(ctx context.Context, id, settledBy string, at time.Time) (*domain.Sale, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, domain.ErrNotFound
	}
	q := `
UPDATE sales SET payment_status = 'Paid', settled_by = $2, settled_at = $3
WHERE id = $1 AND payment_status = 'Unpaid'
RETURNING ` + saleColumns
	s, err := scanSale(r.pool.QueryRow(ctx, q, id, settledBy, at))
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, r.fail("settle", id, err)
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *postgresRepo) QualifyingQuantities(ctx context.Context, customerKey string, policy domain.LoyaltyPolicy) ([]int, error) {
	const q = `
SELECT quantity FROM sales
WHERE customer_key = $1 AND product_type = $2 AND price_per_unit >= $3::numeric
ORDER BY sold_at, created_at`
	rows, err := r.pool.Query(ctx, q, customerKey, policy.ProductType, policy.MinUnitPrice.String())
	if err != nil {
		return nil, r.fail("qualifying quantities", customerKey, err)
	}
	quantities, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, r.fail("qualifying quantities", customerKey, err)
	}
	return quantities, nil
}

func (r *postgresRepo) Summary(ctx context.Context, from, to *time.Time) (*domain.SalesSummary, error) {
	const q = `
SELECT product_type,
       count(*),
       coalesce(sum(quantity), 0),
       coalesce(sum(total_amount), 0)::text,
       coalesce(sum(total_amount) FILTER (WHERE payment_status = 'Unpaid'), 0)::text
FROM sales
WHERE ($1::timestamptz IS NULL OR sold_at >= $1)
  AND ($2::timestamptz IS NULL OR sold_at < $2)
GROUP BY product_type`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, r.fail("summary", "", err)
	}
	defer rows.Close()

	sum := newSummary(from, to)
	for rows.Next() {
		var (
			productType          string
			count, units         int
			revenue, outstanding string
		)
		if err := rows.Scan(&productType, &count, &units, &revenue, &outstanding); err != nil {
			return nil, r.fail("summary scan", "", err)
		}
		rev, err := decimal.NewFromString(revenue)
		if err != nil {
			return nil, fmt.Errorf("parse revenue: %w", err)
		}
		out, err := decimal.NewFromString(outstanding)
		if err != nil {
			return nil, fmt.Errorf("parse outstanding: %w", err)
		}
		sum.SalesCount += count
		sum.UnitsByProduct[productType] += units
		sum.RevenueByProduct[productType] = sum.RevenueByProduct[productType].Add(rev)
		sum.Revenue = sum.Revenue.Add(rev)
		sum.OutstandingCredit = sum.OutstandingCredit.Add(out)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("summary rows", "", err)
	}
	return sum, nil
}

func (r *postgresRepo) fail(op, ref string, err error) error {
	classified := db.Classify(err)
	if errors.Is(classified, domain.ErrNotFound) {
		return classified
	}
	r.logger.Error(op+" failed", zap.String("sale", ref), zap.Error(err))
	return classified
}

func newSummary(from, to *time.Time) *domain.SalesSummary {
	return &domain.SalesSummary{
		From:              from,
		To:                to,
		Revenue:           decimal.Zero,
		RevenueByProduct:  make(map[string]decimal.Decimal),
		UnitsByProduct:    make(map[string]int),
		OutstandingCredit: decimal.Zero,
	}
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var (
		s            domain.Sale
		price, total string
	)
	err := row.Scan(
		&s.ID,
		&s.OrderID,
		&s.ProductType,
		&s.Quantity,
		&s.Unit,
		&price,
		&total,
		&s.CustomerKey,
		&s.CustomerName,
		&s.PaymentType,
		&s.PaymentStatus,
		&s.SettledBy,
		&s.SettledAt,
		&s.LoyaltyApplied,
		&s.SoldAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s.PricePerUnit, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price_per_unit: %w", err)
	}
	if s.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}
	return &s, nil
}
