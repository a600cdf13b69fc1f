package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/domain/product"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/postgres"
	"github.com/streambill/streambill/internal/types"
)

type productRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewProductRepository(db *postgres.DB, logger *logger.Logger) product.Repository {
	return &productRepository{db: db, logger: logger}
}

// productRow carries the bouquet array as a postgres integer array.
type productRow struct {
	ID               string          `db:"id"`
	Name             string          `db:"name"`
	Description      string          `db:"description"`
	AccountType      string          `db:"account_type"`
	PanelFamily      string          `db:"panel_family"`
	PanelIndex       int             `db:"panel_index"`
	RemotePackageID  int             `db:"remote_package_id"`
	Bouquets         pq.Int64Array   `db:"bouquets"`
	MaxConnections   int             `db:"max_connections"`
	ResellerCredits  decimal.Decimal `db:"reseller_credits"`
	ResellerMaxLines int             `db:"reseller_max_lines"`
	IsTrial          bool            `db:"is_trial"`
	TrialDays        int             `db:"trial_days"`
	DisplayOrder     int             `db:"display_order"`
	Active           bool            `db:"active"`

	types.BaseModel
}

func (r *productRow) toDomain() *product.Product {
	bouquets := make([]int, 0, len(r.Bouquets))
	for _, b := range r.Bouquets {
		bouquets = append(bouquets, int(b))
	}
	return &product.Product{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		AccountType:      types.AccountType(r.AccountType),
		PanelFamily:      types.PanelFamily(r.PanelFamily),
		PanelIndex:       r.PanelIndex,
		RemotePackageID:  r.RemotePackageID,
		Bouquets:         bouquets,
		MaxConnections:   r.MaxConnections,
		ResellerCredits:  r.ResellerCredits,
		ResellerMaxLines: r.ResellerMaxLines,
		IsTrial:          r.IsTrial,
		TrialDays:        r.TrialDays,
		DisplayOrder:     r.DisplayOrder,
		Active:           r.Active,
		BaseModel:        r.BaseModel,
	}
}

func bouquetArray(bouquets []int) pq.Int64Array {
	arr := make(pq.Int64Array, 0, len(bouquets))
	for _, b := range bouquets {
		arr = append(arr, int64(b))
	}
	return arr
}

func (r *productRepository) Create(ctx context.Context, prod *product.Product) error {
	query := `
	INSERT INTO products (
		id, name, description, account_type, panel_family, panel_index,
		remote_package_id, bouquets, max_connections, reseller_credits,
		reseller_max_lines, is_trial, trial_days, display_order, active,
		tenant_id, status, created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		prod.ID, prod.Name, prod.Description, prod.AccountType,
		prod.PanelFamily, prod.PanelIndex, prod.RemotePackageID,
		bouquetArray(prod.Bouquets), prod.MaxConnections,
		prod.ResellerCredits, prod.ResellerMaxLines,
		prod.IsTrial, prod.TrialDays, prod.DisplayOrder, prod.Active,
		prod.TenantID, prod.Status,
		prod.CreatedAt, prod.UpdatedAt, prod.CreatedBy, prod.UpdatedBy,
	)
	return err
}

func (r *productRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	query := `SELECT * FROM products WHERE id = $1`

	var row productRow
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &row, query, id); err != nil {
		return nil, asNotFound(err, "product", id)
	}
	return row.toDomain(), nil
}

func (r *productRepository) List(ctx context.Context) ([]*product.Product, error) {
	query := `SELECT * FROM products ORDER BY display_order, name`

	var rows []productRow
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	products := make([]*product.Product, 0, len(rows))
	for i := range rows {
		products = append(products, rows[i].toDomain())
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, prod *product.Product) error {
	query := `
	UPDATE products SET
		name = $2, description = $3, account_type = $4, panel_family = $5,
		panel_index = $6, remote_package_id = $7, bouquets = $8,
		max_connections = $9, reseller_credits = $10, reseller_max_lines = $11,
		is_trial = $12, trial_days = $13, display_order = $14, active = $15,
		status = $16, updated_at = $17, updated_by = $18
	WHERE id = $1
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		prod.ID, prod.Name, prod.Description, prod.AccountType,
		prod.PanelFamily, prod.PanelIndex, prod.RemotePackageID,
		bouquetArray(prod.Bouquets), prod.MaxConnections,
		prod.ResellerCredits, prod.ResellerMaxLines,
		prod.IsTrial, prod.TrialDays, prod.DisplayOrder, prod.Active,
		prod.Status, time.Now().UTC(), prod.UpdatedBy,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ierr.NewErrorf("product %s not found", prod.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ierr.NewErrorf("product %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
