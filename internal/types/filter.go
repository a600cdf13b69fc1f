package types

import "time"

// BaseFilter is implemented by filters that support pagination.
type BaseFilter interface {
	GetLimit() int
	GetOffset() int
	IsUnlimited() bool
}

const (
	FilterDefaultLimit = 50
	FilterMaxLimit     = 1000
)

// QueryFilter holds common pagination fields embedded in entity filters.
type QueryFilter struct {
	Limit  *int `json:"limit,omitempty" form:"limit"`
	Offset *int `json:"offset,omitempty" form:"offset"`
}

func NewDefaultQueryFilter() QueryFilter {
	limit := FilterDefaultLimit
	offset := 0
	return QueryFilter{Limit: &limit, Offset: &offset}
}

func NewNoLimitQueryFilter() QueryFilter {
	return QueryFilter{}
}

func (f QueryFilter) GetLimit() int {
	if f.Limit == nil || *f.Limit <= 0 {
		return FilterDefaultLimit
	}
	if *f.Limit > FilterMaxLimit {
		return FilterMaxLimit
	}
	return *f.Limit
}

func (f QueryFilter) GetOffset() int {
	if f.Offset == nil || *f.Offset < 0 {
		return 0
	}
	return *f.Offset
}

func (f QueryFilter) IsUnlimited() bool {
	return f.Limit == nil
}

// OrderFilter filters order listings.
type OrderFilter struct {
	QueryFilter
	CustomerID string      `json:"customer_id,omitempty" form:"customer_id"`
	Status     OrderStatus `json:"status,omitempty" form:"status"`
}

// ServiceFilter filters local service record listings.
type ServiceFilter struct {
	QueryFilter
	CustomerID    string        `json:"customer_id,omitempty" form:"customer_id"`
	ProductID     string        `json:"product_id,omitempty" form:"product_id"`
	AccountType   AccountType   `json:"account_type,omitempty" form:"account_type"`
	Status        ServiceStatus `json:"status,omitempty" form:"status"`
	PanelFamily   PanelFamily   `json:"panel_family,omitempty" form:"panel_family"`
	PanelIndex    *int          `json:"panel_index,omitempty" form:"panel_index"`
	ExpiringUntil *time.Time    `json:"expiring_until,omitempty"`
	SuspendedAtOrBefore *time.Time `json:"suspended_at_or_before,omitempty"`
}

// ImportedUserFilter filters imported panel account listings.
type ImportedUserFilter struct {
	QueryFilter
	PanelFamily PanelFamily `json:"panel_family,omitempty" form:"panel_family"`
	PanelIndex  *int        `json:"panel_index,omitempty" form:"panel_index"`
	AccountType AccountType `json:"account_type,omitempty" form:"account_type"`
}
