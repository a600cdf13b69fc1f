// Package panel holds the result types shared by the two panel client
// families. The families deliberately do not share a client interface: their
// authentication models and capability sets differ (XuiOne cannot create
// resellers), and a lowest-common-denominator interface would hide that.
package panel

import (
	"time"

	"github.com/shopspring/decimal"
)

// Package is one provisionable package parsed from a panel catalog.
type Package struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Credits        decimal.Decimal `json:"credits"`
	DurationDays   int             `json:"duration_days"`
	MaxConnections int             `json:"max_connections"`
	IsTrial        bool            `json:"is_trial"`
}

// Bouquet is one channel bundle parsed from a panel catalog.
type Bouquet struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CreateResult reports a successful remote account creation.
type CreateResult struct {
	// RemoteUserID is the panel-assigned account id, empty when the panel
	// does not reveal one.
	RemoteUserID string
	Username     string
}

// ExtendResult reports a subscriber extension.
type ExtendResult struct {
	RemoteUserID string
	// NewExpiry is the panel-displayed expiry after the edit, as re-queried.
	NewExpiry string
	// AmbiguityDetail is set when success could not be positively verified
	// (the displayed expiry did not change even though the edit was
	// accepted). Callers treat the call as successful but must log this
	// distinctly so operators can audit.
	AmbiguityDetail string
}

// Ambiguous reports whether the extension succeeded only tentatively.
func (r *ExtendResult) Ambiguous() bool {
	return r.AmbiguityDetail != ""
}

// RemoteAccount is one account row from a panel listing, used by the
// imported-user sync.
type RemoteAccount struct {
	RemoteUserID      string
	Username          string
	Password          string
	ExpiryDate        *time.Time
	Status            string
	Credits           decimal.Decimal
	MaxConnections    int
	IsReseller        bool
	CreatedByReseller string
}
