package account

import (
	"context"
	"time"

	"github.com/streambill/streambill/internal/types"
)

// Repository defines the interface for service record data access
type Repository interface {
	Create(ctx context.Context, account *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	List(ctx context.Context, filter *types.ServiceFilter) ([]*Account, error)
	Count(ctx context.Context, filter *types.ServiceFilter) (int, error)
	Update(ctx context.Context, account *Account) error

	// ExtendExpiry performs the renewal date write as a compare-and-swap on
	// the last-known expiry: the update only applies while the stored expiry
	// still equals prevExpiry. A concurrent renewal that won the race causes
	// ErrVersionConflict, and the caller re-reads and recomputes.
	ExtendExpiry(ctx context.Context, id string, prevExpiry *time.Time, newExpiry time.Time, termMonths int) error
}
