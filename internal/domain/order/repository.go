package order

import (
	"context"
	"time"

	"github.com/streambill/streambill/internal/types"
)

// Repository defines the interface for order data access
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter *types.OrderFilter) ([]*Order, error)
	Update(ctx context.Context, order *Order) error

	// MarkPaid transitions the order from pending to paid. It must be a
	// conditional update on the current status so that a second invocation
	// for the same order fails with ErrInvalidOperation instead of
	// re-confirming payment.
	MarkPaid(ctx context.Context, id string, method string, paidAt time.Time) (*Order, error)
}
