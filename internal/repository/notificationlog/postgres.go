package notificationlog

import (
	"context"

	"mushroom-dashboard/internal/db"
	"mushroom-dashboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("notification_log_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, l domain.NotificationLog) (*domain.NotificationLog, error) {
	const q = `
INSERT INTO notification_logs (channel, recipient, title, message, status, error)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text, channel, recipient, title, message, status, error, created_at`
	out, err := scanLog(r.pool.QueryRow(ctx, q, string(l.Channel), l.Recipient, l.Title, l.Message, l.Status, l.Error))
	if err != nil {
		r.logger.Error("create failed", zap.String("recipient", l.Recipient), zap.Error(err))
		return nil, db.Classify(err)
	}
	return out, nil
}

func (r *postgresRepo) List(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const q = `
SELECT id::text, channel, recipient, title, message, status, error, created_at
FROM notification_logs
ORDER BY created_at DESC
LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		r.logger.Error("list failed", zap.Error(err))
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var out []domain.NotificationLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}

func scanLog(row pgx.Row) (*domain.NotificationLog, error) {
	var (
		l       domain.NotificationLog
		channel string
	)
	if err := row.Scan(&l.ID, &channel, &l.Recipient, &l.Title, &l.Message, &l.Status, &l.Error, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Channel = domain.Channel(channel)
	return &l, nil
}
