package importeduser

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/types"
)

// ImportedUser is a panel-side account discovered by sync rather than created
// through a local order. Records are keyed by (panel instance, username,
// account type); after a sync the stored set for a panel instance mirrors
// exactly what the panel reports.
type ImportedUser struct {
	// ID is the unique identifier of the local record
	ID string `db:"id" json:"id"`

	// PanelFamily, PanelIndex and PanelName locate the source panel instance
	PanelFamily types.PanelFamily `db:"panel_family" json:"panel_family"`
	PanelIndex  int               `db:"panel_index" json:"panel_index"`
	PanelName   string            `db:"panel_name" json:"panel_name"`

	// RemoteUserID is the panel-assigned account identifier
	RemoteUserID string `db:"remote_user_id" json:"remote_user_id"`

	// Username is the remote login; Password may be empty when the panel
	// does not return plaintext credentials
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"password,omitempty"`

	// AccountType is subscriber or reseller
	AccountType types.AccountType `db:"account_type" json:"account_type"`

	// ExpiryDate is the remote expiry, nil for accounts that do not expire
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`

	// RemoteStatus is the panel's own status string (active, disabled, ...)
	RemoteStatus string `db:"remote_status" json:"remote_status"`

	// Credits is the reseller credit balance, zero for subscribers
	Credits decimal.Decimal `db:"credits" json:"credits"`

	// MaxConnections is the connection slot limit for subscriber lines
	MaxConnections int `db:"max_connections" json:"max_connections"`

	// CreatedByReseller is the remote owner username when known
	CreatedByReseller string `db:"created_by_reseller" json:"created_by_reseller,omitempty"`

	// LastSyncedAt is when this record was last confirmed against the panel
	LastSyncedAt time.Time `db:"last_synced_at" json:"last_synced_at"`

	types.BaseModel
}

// Key returns the natural key used to reconcile local records against a
// panel listing.
func (u *ImportedUser) Key() string {
	return Key(u.PanelFamily, u.PanelIndex, u.Username, u.AccountType)
}

// Key builds the reconciliation key for a panel account.
func Key(family types.PanelFamily, panelIndex int, username string, accountType types.AccountType) string {
	return fmt.Sprintf("%s/%d/%s/%s", family, panelIndex, username, accountType)
}

// Changed reports whether the remote listing differs from the stored record
// in any synced field. Unchanged records are not rewritten, which is what
// makes a back-to-back sync converge to zero updates.
func (u *ImportedUser) Changed(remote *ImportedUser) bool {
	if u.RemoteUserID != remote.RemoteUserID ||
		u.RemoteStatus != remote.RemoteStatus ||
		u.MaxConnections != remote.MaxConnections ||
		u.CreatedByReseller != remote.CreatedByReseller ||
		!u.Credits.Equal(remote.Credits) {
		return true
	}
	if (u.ExpiryDate == nil) != (remote.ExpiryDate == nil) {
		return true
	}
	if u.ExpiryDate != nil && !u.ExpiryDate.Equal(*remote.ExpiryDate) {
		return true
	}
	if remote.Password != "" && u.Password != remote.Password {
		return true
	}
	return false
}
