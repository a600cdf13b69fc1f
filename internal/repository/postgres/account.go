package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/domain/account"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/postgres"
	"github.com/streambill/streambill/internal/types"
)

type accountRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return &accountRepository{db: db, logger: logger}
}

type accountRow struct {
	ID               string          `db:"id"`
	CustomerID       string          `db:"customer_id"`
	OrderID          string          `db:"order_id"`
	ProductID        string          `db:"product_id"`
	ProductName      string          `db:"product_name"`
	AccountType      string          `db:"account_type"`
	TermMonths       int             `db:"term_months"`
	Username         string          `db:"username"`
	Password         string          `db:"password"`
	RemoteUserID     string          `db:"remote_user_id"`
	PanelFamily      string          `db:"panel_family"`
	PanelIndex       int             `db:"panel_index"`
	PanelName        string          `db:"panel_name"`
	Bouquets         pq.Int64Array   `db:"bouquets"`
	MaxConnections   int             `db:"max_connections"`
	ResellerCredits  decimal.Decimal `db:"reseller_credits"`
	ResellerMaxLines int             `db:"reseller_max_lines"`
	IsCreditTopUp    bool            `db:"is_credit_topup"`
	ServiceStatus    string          `db:"service_status"`
	LastError        string          `db:"last_error"`
	ActivatedAt      *time.Time      `db:"activated_at"`
	SuspendedAt      *time.Time      `db:"suspended_at"`
	CancelledAt      *time.Time      `db:"cancelled_at"`
	ExpiryDate       *time.Time      `db:"expiry_date"`

	types.BaseModel
}

func (r *accountRow) toDomain() *account.Account {
	bouquets := make([]int, 0, len(r.Bouquets))
	for _, b := range r.Bouquets {
		bouquets = append(bouquets, int(b))
	}
	return &account.Account{
		ID:               r.ID,
		CustomerID:       r.CustomerID,
		OrderID:          r.OrderID,
		ProductID:        r.ProductID,
		ProductName:      r.ProductName,
		AccountType:      types.AccountType(r.AccountType),
		TermMonths:       r.TermMonths,
		Username:         r.Username,
		Password:         r.Password,
		RemoteUserID:     r.RemoteUserID,
		PanelFamily:      types.PanelFamily(r.PanelFamily),
		PanelIndex:       r.PanelIndex,
		PanelName:        r.PanelName,
		Bouquets:         bouquets,
		MaxConnections:   r.MaxConnections,
		ResellerCredits:  r.ResellerCredits,
		ResellerMaxLines: r.ResellerMaxLines,
		IsCreditTopUp:    r.IsCreditTopUp,
		ServiceStatus:    types.ServiceStatus(r.ServiceStatus),
		LastError:        r.LastError,
		ActivatedAt:      r.ActivatedAt,
		SuspendedAt:      r.SuspendedAt,
		CancelledAt:      r.CancelledAt,
		ExpiryDate:       r.ExpiryDate,
		BaseModel:        r.BaseModel,
	}
}

func (r *accountRepository) Create(ctx context.Context, acct *account.Account) error {
	query := `
	INSERT INTO service_accounts (
		id, customer_id, order_id, product_id, product_name, account_type,
		term_months, username, password, remote_user_id, panel_family,
		panel_index, panel_name, bouquets, max_connections, reseller_credits,
		reseller_max_lines, is_credit_topup, service_status, last_error,
		activated_at, suspended_at, cancelled_at, expiry_date,
		tenant_id, status, created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		acct.ID, acct.CustomerID, acct.OrderID, acct.ProductID, acct.ProductName,
		acct.AccountType, acct.TermMonths, acct.Username, acct.Password,
		acct.RemoteUserID, acct.PanelFamily, acct.PanelIndex, acct.PanelName,
		bouquetArray(acct.Bouquets), acct.MaxConnections, acct.ResellerCredits,
		acct.ResellerMaxLines, acct.IsCreditTopUp, acct.ServiceStatus, acct.LastError,
		acct.ActivatedAt, acct.SuspendedAt, acct.CancelledAt, acct.ExpiryDate,
		acct.TenantID, acct.Status,
		acct.CreatedAt, acct.UpdatedAt, acct.CreatedBy, acct.UpdatedBy,
	)
	return err
}

func (r *accountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT * FROM service_accounts WHERE id = $1`

	var row accountRow
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &row, query, id); err != nil {
		return nil, asNotFound(err, "service", id)
	}
	return row.toDomain(), nil
}

func buildServiceFilter(filter *types.ServiceFilter) (string, []interface{}) {
	clause := ""
	args := []interface{}{}

	if filter == nil {
		return clause, args
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		clause += ` AND customer_id = $` + itoa(len(args))
	}
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		clause += ` AND product_id = $` + itoa(len(args))
	}
	if filter.AccountType != "" {
		args = append(args, filter.AccountType)
		clause += ` AND account_type = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clause += ` AND service_status = $` + itoa(len(args))
	}
	if filter.PanelFamily != "" {
		args = append(args, filter.PanelFamily)
		clause += ` AND panel_family = $` + itoa(len(args))
	}
	if filter.PanelIndex != nil {
		args = append(args, *filter.PanelIndex)
		clause += ` AND panel_index = $` + itoa(len(args))
	}
	if filter.ExpiringUntil != nil {
		args = append(args, *filter.ExpiringUntil)
		clause += ` AND expiry_date IS NOT NULL AND expiry_date <= $` + itoa(len(args))
	}
	if filter.SuspendedAtOrBefore != nil {
		args = append(args, *filter.SuspendedAtOrBefore)
		clause += ` AND suspended_at IS NOT NULL AND suspended_at <= $` + itoa(len(args))
	}
	return clause, args
}

func (r *accountRepository) List(ctx context.Context, filter *types.ServiceFilter) ([]*account.Account, error) {
	clause, args := buildServiceFilter(filter)
	query := `SELECT * FROM service_accounts WHERE 1=1` + clause + ` ORDER BY created_at DESC`

	if filter != nil && !filter.IsUnlimited() {
		args = append(args, filter.GetLimit())
		query += ` LIMIT $` + itoa(len(args))
		args = append(args, filter.GetOffset())
		query += ` OFFSET $` + itoa(len(args))
	}

	var rows []accountRow
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	accounts := make([]*account.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].toDomain())
	}
	return accounts, nil
}

func (r *accountRepository) Count(ctx context.Context, filter *types.ServiceFilter) (int, error) {
	clause, args := buildServiceFilter(filter)
	query := `SELECT COUNT(*) FROM service_accounts WHERE 1=1` + clause

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *accountRepository) Update(ctx context.Context, acct *account.Account) error {
	query := `
	UPDATE service_accounts SET
		product_name = $2, term_months = $3, username = $4, password = $5,
		remote_user_id = $6, bouquets = $7, max_connections = $8,
		reseller_credits = $9, reseller_max_lines = $10, is_credit_topup = $11,
		service_status = $12, last_error = $13, activated_at = $14,
		suspended_at = $15, cancelled_at = $16, expiry_date = $17,
		status = $18, updated_at = $19, updated_by = $20
	WHERE id = $1
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		acct.ID, acct.ProductName, acct.TermMonths, acct.Username, acct.Password,
		acct.RemoteUserID, bouquetArray(acct.Bouquets), acct.MaxConnections,
		acct.ResellerCredits, acct.ResellerMaxLines, acct.IsCreditTopUp,
		acct.ServiceStatus, acct.LastError, acct.ActivatedAt,
		acct.SuspendedAt, acct.CancelledAt, acct.ExpiryDate,
		acct.Status, time.Now().UTC(), acct.UpdatedBy,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ierr.NewErrorf("service %s not found", acct.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// ExtendExpiry applies the renewal date only while the stored expiry still
// equals the value the caller computed from. Zero rows affected with the
// record present means a concurrent renewal won the race.
func (r *accountRepository) ExtendExpiry(ctx context.Context, id string, prevExpiry *time.Time, newExpiry time.Time, termMonths int) error {
	query := `
	UPDATE service_accounts SET
		expiry_date = $2, term_months = $3, updated_at = $4
	WHERE id = $1
		AND ((expiry_date = $5) OR (expiry_date IS NULL AND $5::timestamptz IS NULL))
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query, id, newExpiry, termMonths, time.Now().UTC(), prevExpiry,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ierr.NewErrorf("service %s expiry changed concurrently", id).
			WithHint("Re-read the service and recompute the renewal").
			Mark(ierr.ErrVersionConflict)
	}
	return nil
}
