package order

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/types"
)

// Item is one purchased line of an order.
type Item struct {
	// ProductID references the purchased product
	ProductID string `db:"product_id" json:"product_id"`

	// ProductName is a snapshot for invoices; products may be renamed later
	ProductName string `db:"product_name" json:"product_name"`

	// TermMonths is the chosen term length in whole months
	TermMonths int `db:"term_months" json:"term_months"`

	// UnitPrice is the price charged for this line
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`

	// AccountType is a snapshot of the product's account-type tag
	AccountType types.AccountType `db:"account_type" json:"account_type"`

	// RenewalServiceID, when set, names the exact service this purchase
	// extends. Takes precedence over ActionType.
	RenewalServiceID string `db:"renewal_service_id" json:"renewal_service_id,omitempty"`

	// ActionType is the legacy create/extend intent flag. With no explicit
	// RenewalServiceID, "extend" falls back to first active service matching
	// (customer, product).
	ActionType types.OrderItemAction `db:"action_type" json:"action_type,omitempty"`
}

// ResellerCredentials carries customer-chosen credentials for a reseller
// purchase instead of generated ones.
type ResellerCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Order is a purchase request.
type Order struct {
	// ID is the unique identifier for the order
	ID string `db:"id" json:"id"`

	// Number is the short human-facing order reference
	Number string `db:"number" json:"number"`

	// CustomerID references the owning customer
	CustomerID string `db:"customer_id" json:"customer_id"`

	// Items are the purchased lines
	Items []Item `db:"items" json:"items"`

	// Subtotal is the sum of item prices before discounts
	Subtotal decimal.Decimal `db:"subtotal" json:"subtotal"`

	// DiscountAmount is the coupon discount applied
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`

	// CouponCode is the redeemed coupon, if any
	CouponCode string `db:"coupon_code" json:"coupon_code,omitempty"`

	// CreditsUsed is the store credit applied
	CreditsUsed decimal.Decimal `db:"credits_used" json:"credits_used"`

	// Total is the amount actually charged
	Total decimal.Decimal `db:"total" json:"total"`

	// ResellerCredentials, when set, are used verbatim for reseller items
	ResellerCredentials *ResellerCredentials `db:"reseller_credentials" json:"reseller_credentials,omitempty"`

	// PaymentStatus is the payment lifecycle state
	PaymentStatus types.OrderStatus `db:"payment_status" json:"payment_status"`

	// PaymentMethod records which gateway (or manual action) confirmed payment
	PaymentMethod string `db:"payment_method" json:"payment_method"`

	// PaidAt is set exactly once when the order becomes paid
	PaidAt *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	types.BaseModel
}

// Validate enforces the order amount invariant:
// total = subtotal - discount - credits, never negative.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ierr.NewError("order has no items").
			WithHint("An order must contain at least one line item").
			Mark(ierr.ErrValidation)
	}

	expected := o.Subtotal.Sub(o.DiscountAmount).Sub(o.CreditsUsed)
	if expected.IsNegative() {
		return ierr.NewError("order total would be negative").
			WithHint("Discounts and credits cannot exceed the subtotal").
			Mark(ierr.ErrValidation)
	}
	if !o.Total.Equal(expected) {
		return ierr.NewErrorf("order total %s does not match subtotal - discount - credits = %s",
			o.Total, expected).
			Mark(ierr.ErrValidation)
	}

	for i := range o.Items {
		if o.Items[i].TermMonths <= 0 {
			return ierr.NewErrorf("item %d has non-positive term", i).
				WithHint("Term length must be at least one month").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// CanCancel reports whether the order may transition to cancelled.
// Only pending orders can be cancelled.
func (o *Order) CanCancel() bool {
	return o.PaymentStatus == types.OrderStatusPending
}
