package postgres

import (
	"context"
	"time"

	"github.com/streambill/streambill/internal/domain/importeduser"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/postgres"
	"github.com/streambill/streambill/internal/types"
)

type importedUserRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewImportedUserRepository(db *postgres.DB, logger *logger.Logger) importeduser.Repository {
	return &importedUserRepository{db: db, logger: logger}
}

func (r *importedUserRepository) Create(ctx context.Context, user *importeduser.ImportedUser) error {
	query := `
	INSERT INTO imported_users (
		id, panel_family, panel_index, panel_name, remote_user_id, username,
		password, account_type, expiry_date, remote_status, credits,
		max_connections, created_by_reseller, last_synced_at,
		tenant_id, status, created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		user.ID, user.PanelFamily, user.PanelIndex, user.PanelName,
		user.RemoteUserID, user.Username, user.Password, user.AccountType,
		user.ExpiryDate, user.RemoteStatus, user.Credits,
		user.MaxConnections, user.CreatedByReseller, user.LastSyncedAt,
		user.TenantID, user.Status,
		user.CreatedAt, user.UpdatedAt, user.CreatedBy, user.UpdatedBy,
	)
	return err
}

func (r *importedUserRepository) Get(ctx context.Context, id string) (*importeduser.ImportedUser, error) {
	query := `SELECT * FROM imported_users WHERE id = $1`

	var user importeduser.ImportedUser
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &user, query, id); err != nil {
		return nil, asNotFound(err, "imported user", id)
	}
	return &user, nil
}

func (r *importedUserRepository) List(ctx context.Context, filter *types.ImportedUserFilter) ([]*importeduser.ImportedUser, error) {
	query := `SELECT * FROM imported_users WHERE 1=1`
	args := []interface{}{}

	if filter != nil {
		if filter.PanelFamily != "" {
			args = append(args, filter.PanelFamily)
			query += ` AND panel_family = $` + itoa(len(args))
		}
		if filter.PanelIndex != nil {
			args = append(args, *filter.PanelIndex)
			query += ` AND panel_index = $` + itoa(len(args))
		}
		if filter.AccountType != "" {
			args = append(args, filter.AccountType)
			query += ` AND account_type = $` + itoa(len(args))
		}
	}
	query += ` ORDER BY panel_family, panel_index, username`
	if filter != nil && !filter.IsUnlimited() {
		args = append(args, filter.GetLimit())
		query += ` LIMIT $` + itoa(len(args))
		args = append(args, filter.GetOffset())
		query += ` OFFSET $` + itoa(len(args))
	}

	var users []*importeduser.ImportedUser
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *importedUserRepository) Update(ctx context.Context, user *importeduser.ImportedUser) error {
	query := `
	UPDATE imported_users SET
		remote_user_id = $2, username = $3, password = $4, account_type = $5,
		expiry_date = $6, remote_status = $7, credits = $8,
		max_connections = $9, created_by_reseller = $10, last_synced_at = $11,
		updated_at = $12
	WHERE id = $1
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		user.ID, user.RemoteUserID, user.Username, user.Password, user.AccountType,
		user.ExpiryDate, user.RemoteStatus, user.Credits,
		user.MaxConnections, user.CreatedByReseller, user.LastSyncedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ierr.NewErrorf("imported user %s not found", user.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *importedUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, `DELETE FROM imported_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ierr.NewErrorf("imported user %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *importedUserRepository) ListByPanel(ctx context.Context, family types.PanelFamily, panelIndex int) ([]*importeduser.ImportedUser, error) {
	query := `SELECT * FROM imported_users WHERE panel_family = $1 AND panel_index = $2`

	var users []*importeduser.ImportedUser
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &users, query, family, panelIndex); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *importedUserRepository) DeleteByPanel(ctx context.Context, family types.PanelFamily, panelIndex int) (int, error) {
	query := `DELETE FROM imported_users WHERE panel_family = $1 AND panel_index = $2`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, family, panelIndex)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
