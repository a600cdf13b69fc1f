package postgres

import (
	"context"
	"time"

	"github.com/streambill/streambill/internal/domain/customer"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/postgres"
)

type customerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return &customerRepository{db: db, logger: logger}
}

func (r *customerRepository) Create(ctx context.Context, cust *customer.Customer) error {
	query := `
	INSERT INTO customers (
		id, email, name, credit_balance,
		tenant_id, status, created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		cust.ID, cust.Email, cust.Name, cust.CreditBalance,
		cust.TenantID, cust.Status,
		cust.CreatedAt, cust.UpdatedAt, cust.CreatedBy, cust.UpdatedBy,
	)
	return err
}

func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	query := `SELECT * FROM customers WHERE id = $1`

	var cust customer.Customer
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &cust, query, id); err != nil {
		return nil, asNotFound(err, "customer", id)
	}
	return &cust, nil
}

func (r *customerRepository) Update(ctx context.Context, cust *customer.Customer) error {
	query := `
	UPDATE customers SET
		email = $2, name = $3, credit_balance = $4,
		status = $5, updated_at = $6, updated_by = $7
	WHERE id = $1
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		cust.ID, cust.Email, cust.Name, cust.CreditBalance,
		cust.Status, time.Now().UTC(), cust.UpdatedBy,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ierr.NewErrorf("customer %s not found", cust.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
