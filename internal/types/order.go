package types

// OrderStatus tracks payment state of an order, not provisioning state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItemAction is the explicit intent a checkout line item may carry.
type OrderItemAction string

const (
	OrderItemActionCreateNew OrderItemAction = "create_new"
	OrderItemActionExtend    OrderItemAction = "extend"
)

// DaysPerTermMonth converts whole term months to a day count. The panels and
// all historical billing data use 30-day months, so this stays 30 even though
// it is not calendar accurate.
const DaysPerTermMonth = 30
