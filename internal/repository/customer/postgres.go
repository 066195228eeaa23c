package customer

import (
	"context"
	"errors"
	"strings"
	"time"

	"mushroom-dashboard/internal/db"
	"mushroom-dashboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const customerColumns = `customer_key, name, cycle_count, free_rewards_available, rewards_redeemed,
       rewards_claimed_total, lifetime_units_purchased, total_orders, version, last_notified_at,
       created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres. Per-key atomicity comes from a row lock
// held for the duration of the mutator.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("customer_repo")}
}

func (r *postgresRepo) Get(ctx context.Context, key string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE customer_key = $1`
	c, err := scanCustomer(r.pool.QueryRow(ctx, q, key))
	if err != nil {
		return nil, r.fail("get", key, err)
	}
	return c, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, key string, fn Mutator) (*domain.Customer, error) {
	return r.mutate(ctx, key, true, fn)
}

func (r *postgresRepo) Update(ctx context.Context, key string, fn Mutator) (*domain.Customer, error) {
	return r.mutate(ctx, key, false, fn)
}

func (r *postgresRepo) mutate(ctx context.Context, key string, create bool, fn Mutator) (*domain.Customer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, r.fail("begin", key, err)
	}
	defer tx.Rollback(ctx)

	if create {
		const ins = `INSERT INTO customers (customer_key) VALUES ($1) ON CONFLICT (customer_key) DO NOTHING`
		if _, err := tx.Exec(ctx, ins, key); err != nil {
			return nil, r.fail("insert", key, err)
		}
	}

	q := `SELECT ` + customerColumns + ` FROM customers WHERE customer_key = $1 FOR UPDATE`
	current, err := scanCustomer(tx.QueryRow(ctx, q, key))
	if err != nil {
		return nil, r.fail("lock", key, err)
	}

	next := *current
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.Key = current.Key

	const upd = `
UPDATE customers SET
    name = $2,
    cycle_count = $3,
    free_rewards_available = $4,
    rewards_redeemed = $5,
    rewards_claimed_total = $6,
    lifetime_units_purchased = $7,
    total_orders = $8,
    last_notified_at = $9,
    version = version + 1,
    updated_at = now()
WHERE customer_key = $1
RETURNING ` + customerColumns
	updated, err := scanCustomer(tx.QueryRow(ctx, upd,
		key,
		next.Name,
		next.CycleCount,
		next.FreeRewardsAvailable,
		next.RewardsRedeemed,
		next.RewardsClaimedTotal,
		next.LifetimeUnitsPurchased,
		next.TotalOrders,
		next.LastNotifiedAt,
	))
	if err != nil {
		return nil, r.fail("update", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, r.fail("commit", key, err)
	}
	return updated, nil
}

func (r *postgresRepo) Register(ctx context.Context, key, name string) (*domain.Customer, error) {
	q := `
INSERT INTO customers (customer_key, name, version) VALUES ($1, $2, 1)
ON CONFLICT (customer_key) DO UPDATE
    SET name = CASE WHEN EXCLUDED.name = '' THEN customers.name ELSE EXCLUDED.name END,
        version = customers.version + 1,
        updated_at = now()
RETURNING ` + customerColumns
	c, err := scanCustomer(r.pool.QueryRow(ctx, q, key, strings.TrimSpace(name)))
	if err != nil {
		return nil, r.fail("register", key, err)
	}
	return c, nil
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Customer, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := `SELECT ` + customerColumns + ` FROM customers
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR customer_key LIKE '%' || $1 || '%')
ORDER BY updated_at DESC
LIMIT $2`
	rows, err := r.pool.Query(ctx, q, strings.TrimSpace(filter.Name), limit)
	if err != nil {
		return nil, r.fail("list", "", err)
	}
	return r.collect(rows)
}

func (r *postgresRepo) ListRewardPending(ctx context.Context, notifiedBefore time.Time, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := `SELECT ` + customerColumns + ` FROM customers
WHERE free_rewards_available > rewards_redeemed
  AND (last_notified_at IS NULL OR last_notified_at < $1)
ORDER BY last_notified_at NULLS FIRST, customer_key
LIMIT $2`
	rows, err := r.pool.Query(ctx, q, notifiedBefore, limit)
	if err != nil {
		return nil, r.fail("list reward pending", "", err)
	}
	return r.collect(rows)
}

func (r *postgresRepo) collect(rows pgx.Rows) ([]domain.Customer, error) {
	defer rows.Close()
	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, r.fail("scan", "", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail("rows", "", err)
	}
	return out, nil
}

func (r *postgresRepo) fail(op, key string, err error) error {
	classified := db.Classify(err)
	if errors.Is(classified, domain.ErrNotFound) {
		return domain.ErrCustomerNotFound
	}
	r.logger.Error(op+" failed", zap.String("customer_key", key), zap.Error(err))
	return classified
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.Key,
		&c.Name,
		&c.CycleCount,
		&c.FreeRewardsAvailable,
		&c.RewardsRedeemed,
		&c.RewardsClaimedTotal,
		&c.LifetimeUnitsPurchased,
		&c.TotalOrders,
		&c.Version,
		&c.LastNotifiedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
