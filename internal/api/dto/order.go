package dto

import (
	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/domain/order"
	"github.com/streambill/streambill/internal/types"
)

// OrderItemRequest is one purchase line in an incoming order.
type OrderItemRequest struct {
	ProductID        string                `json:"product_id" binding:"required"`
	TermMonths       int                   `json:"term_months" binding:"required,min=1"`
	UnitPrice        decimal.Decimal       `json:"unit_price"`
	RenewalServiceID string                `json:"renewal_service_id"`
	ActionType       types.OrderItemAction `json:"action_type"`
}

// ResellerCredentialsRequest carries customer-chosen reseller credentials.
type ResellerCredentialsRequest struct {
	Username string `json:"username" binding:"required,min=4"`
	Password string `json:"password" binding:"required,min=6"`
}

// CreateOrderRequest is the payload for creating a new order.
type CreateOrderRequest struct {
	CustomerID          string                      `json:"customer_id" binding:"required"`
	Items               []OrderItemRequest          `json:"items" binding:"required,min=1,dive"`
	CouponCode          string                      `json:"coupon_code"`
	DiscountAmount      decimal.Decimal             `json:"discount_amount"`
	CreditsUsed         decimal.Decimal             `json:"credits_used"`
	ResellerCredentials *ResellerCredentialsRequest `json:"reseller_credentials"`
}

// ToOrder converts the request into a domain order.
func (r *CreateOrderRequest) ToOrder() *order.Order {
	ord := &order.Order{
		CustomerID:     r.CustomerID,
		CouponCode:     r.CouponCode,
		DiscountAmount: r.DiscountAmount,
		CreditsUsed:    r.CreditsUsed,
	}
	for _, item := range r.Items {
		ord.Items = append(ord.Items, order.Item{
			ProductID:        item.ProductID,
			TermMonths:       item.TermMonths,
			UnitPrice:        item.UnitPrice,
			RenewalServiceID: item.RenewalServiceID,
			ActionType:       item.ActionType,
		})
	}
	if r.ResellerCredentials != nil {
		ord.ResellerCredentials = &order.ResellerCredentials{
			Username: r.ResellerCredentials.Username,
			Password: r.ResellerCredentials.Password,
		}
	}
	return ord
}

// MarkPaidRequest confirms payment of a pending order.
type MarkPaidRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// ListOrdersResponse wraps an order listing.
type ListOrdersResponse struct {
	Items []*order.Order `json:"items"`
	Total int            `json:"total"`
}
