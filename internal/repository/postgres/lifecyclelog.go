package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/streambill/streambill/internal/domain/lifecyclelog"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/postgres"
	"github.com/streambill/streambill/internal/types"
)

type lifecycleLogRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewLifecycleLogRepository(db *postgres.DB, logger *logger.Logger) lifecyclelog.Repository {
	return &lifecycleLogRepository{db: db, logger: logger}
}

func (r *lifecycleLogRepository) Create(ctx context.Context, entry *lifecyclelog.Entry) error {
	query := `
	INSERT INTO lifecycle_logs (
		id, service_id, customer_id, action, reason, triggered_by,
		old_status, new_status, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		entry.ID, entry.ServiceID, entry.CustomerID, entry.Action,
		entry.Reason, entry.TriggeredBy, entry.OldStatus, entry.NewStatus,
		entry.CreatedAt,
	)
	return err
}

func (r *lifecycleLogRepository) ListByService(ctx context.Context, serviceID string) ([]*lifecyclelog.Entry, error) {
	query := `SELECT * FROM lifecycle_logs WHERE service_id = $1 ORDER BY created_at ASC`

	var entries []*lifecyclelog.Entry
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &entries, query, serviceID); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *lifecycleLogRepository) LastActionSince(ctx context.Context, serviceID string, action types.LifecycleAction, since time.Time) (*lifecyclelog.Entry, error) {
	query := `
	SELECT * FROM lifecycle_logs
	WHERE service_id = $1 AND action = $2 AND created_at >= $3
	ORDER BY created_at DESC
	LIMIT 1
	`

	var entry lifecyclelog.Entry
	err := r.db.GetQuerier(ctx).GetContext(ctx, &entry, query, serviceID, action, since)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
