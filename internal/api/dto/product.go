package dto

import (
	"github.com/shopspring/decimal"

	"github.com/streambill/streambill/internal/domain/product"
	"github.com/streambill/streambill/internal/types"
)

// UpsertProductRequest creates or updates a catalog product.
type UpsertProductRequest struct {
	Name             string            `json:"name" binding:"required"`
	Description      string            `json:"description"`
	AccountType      types.AccountType `json:"account_type" binding:"required,oneof=subscriber reseller"`
	PanelFamily      types.PanelFamily `json:"panel_family" binding:"required,oneof=xtreamui xuione"`
	PanelIndex       int               `json:"panel_index"`
	RemotePackageID  int               `json:"remote_package_id"`
	Bouquets         []int             `json:"bouquets"`
	MaxConnections   int               `json:"max_connections"`
	ResellerCredits  decimal.Decimal   `json:"reseller_credits"`
	ResellerMaxLines int               `json:"reseller_max_lines"`
	IsTrial          bool              `json:"is_trial"`
	TrialDays        int               `json:"trial_days"`
	DisplayOrder     int               `json:"display_order"`
	Active           bool              `json:"active"`
}

// ToProduct converts the request into a domain product. id is empty on create.
func (r *UpsertProductRequest) ToProduct(id string) *product.Product {
	return &product.Product{
		ID:               id,
		Name:             r.Name,
		Description:      r.Description,
		AccountType:      r.AccountType,
		PanelFamily:      r.PanelFamily,
		PanelIndex:       r.PanelIndex,
		RemotePackageID:  r.RemotePackageID,
		Bouquets:         r.Bouquets,
		MaxConnections:   r.MaxConnections,
		ResellerCredits:  r.ResellerCredits,
		ResellerMaxLines: r.ResellerMaxLines,
		IsTrial:          r.IsTrial,
		TrialDays:        r.TrialDays,
		DisplayOrder:     r.DisplayOrder,
		Active:           r.Active,
	}
}
