package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/domain/order"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/postgres"
	"github.com/streambill/streambill/internal/types"
)

type orderRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewOrderRepository(db *postgres.DB, logger *logger.Logger) order.Repository {
	return &orderRepository{db: db, logger: logger}
}

// orderRow flattens the JSONB columns for sqlx scanning.
type orderRow struct {
	ID                  string          `db:"id"`
	Number              string          `db:"number"`
	CustomerID          string          `db:"customer_id"`
	Items               []byte          `db:"items"`
	Subtotal            decimal.Decimal `db:"subtotal"`
	DiscountAmount      decimal.Decimal `db:"discount_amount"`
	CouponCode          string          `db:"coupon_code"`
	CreditsUsed         decimal.Decimal `db:"credits_used"`
	Total               decimal.Decimal `db:"total"`
	ResellerCredentials []byte          `db:"reseller_credentials"`
	PaymentStatus       string          `db:"payment_status"`
	PaymentMethod       string          `db:"payment_method"`
	PaidAt              *time.Time      `db:"paid_at"`

	types.BaseModel
}

func (r *orderRow) toDomain() (*order.Order, error) {
	ord := &order.Order{
		ID:             r.ID,
		Number:         r.Number,
		CustomerID:     r.CustomerID,
		Subtotal:       r.Subtotal,
		DiscountAmount: r.DiscountAmount,
		CouponCode:     r.CouponCode,
		CreditsUsed:    r.CreditsUsed,
		Total:          r.Total,
		PaymentStatus:  types.OrderStatus(r.PaymentStatus),
		PaymentMethod:  r.PaymentMethod,
		PaidAt:         r.PaidAt,
		BaseModel:      r.BaseModel,
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &ord.Items); err != nil {
			return nil, err
		}
	}
	if len(r.ResellerCredentials) > 0 {
		creds := &order.ResellerCredentials{}
		if err := json.Unmarshal(r.ResellerCredentials, creds); err != nil {
			return nil, err
		}
		ord.ResellerCredentials = creds
	}
	return ord, nil
}

func encodeOrder(ord *order.Order) (items, creds []byte, err error) {
	items, err = json.Marshal(ord.Items)
	if err != nil {
		return nil, nil, err
	}
	if ord.ResellerCredentials != nil {
		creds, err = json.Marshal(ord.ResellerCredentials)
		if err != nil {
			return nil, nil, err
		}
	}
	return items, creds, nil
}

func (r *orderRepository) Create(ctx context.Context, ord *order.Order) error {
	items, creds, err := encodeOrder(ord)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO orders (
		id, number, customer_id, items, subtotal, discount_amount, coupon_code,
		credits_used, total, reseller_credentials, payment_status, payment_method,
		paid_at, tenant_id, status, created_at, updated_at, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		ord.ID, ord.Number, ord.CustomerID, items,
		ord.Subtotal, ord.DiscountAmount, ord.CouponCode,
		ord.CreditsUsed, ord.Total, creds,
		ord.PaymentStatus, ord.PaymentMethod, ord.PaidAt,
		ord.TenantID, ord.Status,
		ord.CreatedAt, ord.UpdatedAt, ord.CreatedBy, ord.UpdatedBy,
	)
	return err
}

func (r *orderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	query := `SELECT * FROM orders WHERE id = $1`

	var row orderRow
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &row, query, id); err != nil {
		return nil, asNotFound(err, "order", id)
	}
	return row.toDomain()
}

func (r *orderRepository) List(ctx context.Context, filter *types.OrderFilter) ([]*order.Order, error) {
	query := `SELECT * FROM orders WHERE 1=1`
	args := []interface{}{}

	if filter != nil {
		if filter.CustomerID != "" {
			args = append(args, filter.CustomerID)
			query += ` AND customer_id = $` + itoa(len(args))
		}
		if filter.Status != "" {
			args = append(args, filter.Status)
			query += ` AND payment_status = $` + itoa(len(args))
		}
	}
	query += ` ORDER BY created_at DESC`
	if filter != nil && !filter.IsUnlimited() {
		args = append(args, filter.GetLimit())
		query += ` LIMIT $` + itoa(len(args))
		args = append(args, filter.GetOffset())
		query += ` OFFSET $` + itoa(len(args))
	}

	var rows []orderRow
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(rows))
	for i := range rows {
		ord, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	return orders, nil
}

func (r *orderRepository) Update(ctx context.Context, ord *order.Order) error {
	items, creds, err := encodeOrder(ord)
	if err != nil {
		return err
	}

	query := `
	UPDATE orders SET
		items = $2, subtotal = $3, discount_amount = $4, coupon_code = $5,
		credits_used = $6, total = $7, reseller_credentials = $8,
		payment_status = $9, payment_method = $10, paid_at = $11,
		status = $12, updated_at = $13, updated_by = $14
	WHERE id = $1
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		ord.ID, items, ord.Subtotal, ord.DiscountAmount, ord.CouponCode,
		ord.CreditsUsed, ord.Total, creds,
		ord.PaymentStatus, ord.PaymentMethod, ord.PaidAt,
		ord.Status, time.Now().UTC(), ord.UpdatedBy,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ierr.NewErrorf("order %s not found", ord.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// MarkPaid is a conditional update on the pending status. One row affected
// means this call won; zero means the order was already paid, cancelled, or
// never existed, and replayed gateway confirmations land here.
func (r *orderRepository) MarkPaid(ctx context.Context, id string, method string, paidAt time.Time) (*order.Order, error) {
	query := `
	UPDATE orders SET
		payment_status = $2, payment_method = $3, paid_at = $4, updated_at = $4
	WHERE id = $1 AND payment_status = $5
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query, id, types.OrderStatusPaid, method, paidAt, types.OrderStatusPending,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		ord, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, ierr.NewErrorf("order %s is not pending", id).
			WithHintf("Order is already %s", ord.PaymentStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	return r.Get(ctx, id)
}
