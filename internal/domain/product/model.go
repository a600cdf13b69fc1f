package product

import (
	"github.com/shopspring/decimal"

	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/types"
)

// Product is a sellable catalog entry. It is immutable reference data at
// provisioning time: the orchestrator reads it to learn which panel instance
// to target and what to provision, and never writes it back.
type Product struct {
	// ID is the unique identifier for the product
	ID string `db:"id" json:"id"`

	// Name is the display name shown at checkout and on services
	Name string `db:"name" json:"name"`

	// Description is the marketing description
	Description string `db:"description" json:"description"`

	// AccountType tags the product as subscriber or reseller
	AccountType types.AccountType `db:"account_type" json:"account_type"`

	// PanelFamily selects which panel backend provisions this product
	PanelFamily types.PanelFamily `db:"panel_family" json:"panel_family"`

	// PanelIndex selects the panel instance within the family's configured list
	PanelIndex int `db:"panel_index" json:"panel_index"`

	// RemotePackageID is the panel-side package identifier. It is meaningless
	// without knowing which panel instance it belongs to.
	RemotePackageID int `db:"remote_package_id" json:"remote_package_id"`

	// Bouquets is the channel-bundle selection submitted at create time
	Bouquets []int `db:"bouquets" json:"bouquets"`

	// MaxConnections is the concurrent connection slot limit
	MaxConnections int `db:"max_connections" json:"max_connections"`

	// ResellerCredits is the credit grant for reseller products
	ResellerCredits decimal.Decimal `db:"reseller_credits" json:"reseller_credits"`

	// ResellerMaxLines caps lines a reseller account may create
	ResellerMaxLines int `db:"reseller_max_lines" json:"reseller_max_lines"`

	// IsTrial marks trial products; TrialDays overrides the term duration
	IsTrial   bool `db:"is_trial" json:"is_trial"`
	TrialDays int  `db:"trial_days" json:"trial_days"`

	// DisplayOrder orders products in listings, lower first
	DisplayOrder int `db:"display_order" json:"display_order"`

	// Active controls whether the product is purchasable
	Active bool `db:"active" json:"active"`

	types.BaseModel
}

// Validate checks the panel routing fields that provisioning depends on.
func (p *Product) Validate() error {
	if !p.PanelFamily.Validate() {
		return ierr.NewErrorf("unknown panel family %q", p.PanelFamily).
			WithHint("Panel family must be xtreamui or xuione").
			Mark(ierr.ErrValidation)
	}
	if !p.AccountType.Validate() {
		return ierr.NewErrorf("unknown account type %q", p.AccountType).
			WithHint("Account type must be subscriber or reseller").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DurationDays returns the provisioned duration for a purchase of termMonths.
// Trial products use their fixed trial duration regardless of term.
func (p *Product) DurationDays(termMonths int) int {
	if p.IsTrial && p.TrialDays > 0 {
		return p.TrialDays
	}
	return termMonths * types.DaysPerTermMonth
}
