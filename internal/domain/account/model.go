package account

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/types"
)

// Account is the local mirror of a remote provisioned panel account. It holds
// everything needed to target the remote account again later (credentials,
// panel reference, remote id) plus the billing-side lifecycle state.
type Account struct {
	// ID is the unique identifier for the service record
	ID string `db:"id" json:"id"`

	// CustomerID references the owning customer
	CustomerID string `db:"customer_id" json:"customer_id"`

	// OrderID references the originating order
	OrderID string `db:"order_id" json:"order_id"`

	// ProductID references the originating product
	ProductID string `db:"product_id" json:"product_id"`

	// ProductName is a display snapshot
	ProductName string `db:"product_name" json:"product_name"`

	// AccountType is subscriber or reseller
	AccountType types.AccountType `db:"account_type" json:"account_type"`

	// TermMonths is the term of the most recent purchase
	TermMonths int `db:"term_months" json:"term_months"`

	// Username and Password are the remote panel credentials. The panels
	// require plaintext for their own authentication, so these are stored
	// as given.
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"password"`

	// RemoteUserID is the panel-assigned account identifier ("line id").
	// Keeping it avoids fragile username re-lookups on suspend/extend.
	RemoteUserID string `db:"remote_user_id" json:"remote_user_id"`

	// PanelFamily, PanelIndex and PanelName locate the panel instance
	PanelFamily types.PanelFamily `db:"panel_family" json:"panel_family"`
	PanelIndex  int               `db:"panel_index" json:"panel_index"`
	PanelName   string            `db:"panel_name" json:"panel_name"`

	// Bouquets is the channel-bundle snapshot submitted at create time
	Bouquets []int `db:"bouquets" json:"bouquets"`

	// MaxConnections is the connection slot limit
	MaxConnections int `db:"max_connections" json:"max_connections"`

	// ResellerCredits is the credit balance snapshot for reseller accounts
	ResellerCredits decimal.Decimal `db:"reseller_credits" json:"reseller_credits"`

	// ResellerMaxLines caps lines the reseller may create
	ResellerMaxLines int `db:"reseller_max_lines" json:"reseller_max_lines"`

	// IsCreditTopUp marks records that document a credit top-up onto an
	// existing reseller account rather than a distinct remote account.
	IsCreditTopUp bool `db:"is_credit_topup" json:"is_credit_topup"`

	// ServiceStatus is the provisioning lifecycle state
	ServiceStatus types.ServiceStatus `db:"service_status" json:"service_status"`

	// LastError preserves the adapter's error message verbatim on failure so
	// an operator can re-provision manually.
	LastError string `db:"last_error" json:"last_error,omitempty"`

	// Lifecycle timestamps
	ActivatedAt *time.Time `db:"activated_at" json:"activated_at,omitempty"`
	SuspendedAt *time.Time `db:"suspended_at" json:"suspended_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`

	types.BaseModel
}

// NextExpiry implements the additive renewal rule: extend from the current
// expiry while it is still in the future, otherwise from now. Renewing an
// expired service must never back-date from the stale expiry.
func NextExpiry(current *time.Time, now time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}

// IsExtendable reports whether the record can be the target of an extension.
func (a *Account) IsExtendable() bool {
	return a.ServiceStatus == types.ServiceStatusActive && !a.IsCreditTopUp
}
