package lifecyclelog

import (
	"context"
	"time"

	"github.com/streambill/streambill/internal/types"
)

// Repository defines the interface for lifecycle log data access
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	ListByService(ctx context.Context, serviceID string) ([]*Entry, error)

	// LastActionSince returns the most recent entry with the given action for
	// a service created after the cutoff, or nil. Used to avoid re-sending
	// expiry warnings within the same window.
	LastActionSince(ctx context.Context, serviceID string, action types.LifecycleAction, since time.Time) (*Entry, error)
}
