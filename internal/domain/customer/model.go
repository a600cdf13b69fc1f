package customer

import (
	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/types"
)

// Customer represents a billing customer in the system
type Customer struct {
	// ID is the unique identifier for the customer
	ID string `db:"id" json:"id"`

	// Email is the email of the customer
	Email string `db:"email" json:"email"`

	// Name is the display name of the customer
	Name string `db:"name" json:"name"`

	// CreditBalance is the store-credit balance applied at checkout
	CreditBalance decimal.Decimal `db:"credit_balance" json:"credit_balance"`

	types.BaseModel
}
