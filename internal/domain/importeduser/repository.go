package importeduser

import (
	"context"

	"github.com/streambill/streambill/internal/types"
)

// Repository defines the interface for imported panel account data access
type Repository interface {
	Create(ctx context.Context, user *ImportedUser) error
	Get(ctx context.Context, id string) (*ImportedUser, error)
	List(ctx context.Context, filter *types.ImportedUserFilter) ([]*ImportedUser, error)
	Update(ctx context.Context, user *ImportedUser) error
	Delete(ctx context.Context, id string) error

	// ListByPanel returns every record for one panel instance; the sync
	// reconciles this set against the panel's live listing.
	ListByPanel(ctx context.Context, family types.PanelFamily, panelIndex int) ([]*ImportedUser, error)

	// DeleteByPanel removes all records referencing a panel instance that was
	// deleted from configuration. Returns the number of records removed.
	DeleteByPanel(ctx context.Context, family types.PanelFamily, panelIndex int) (int, error)
}
