package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/streambill/streambill/internal/domain/product"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/panel"
	"github.com/streambill/streambill/internal/types"
)

const panelCatalogTTL = 10 * time.Minute

// CatalogService serves the storefront product list and the panel-side
// package catalogs admins pick remote package ids from. Panel catalogs are
// scraped, so they are cached briefly.
type CatalogService interface {
	CreateProduct(ctx context.Context, prod *product.Product) error
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	UpdateProduct(ctx context.Context, prod *product.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// ListProducts returns purchasable products in display order.
	ListProducts(ctx context.Context, includeInactive bool) ([]*product.Product, error)

	// PanelPackages lists the packages one panel instance offers.
	PanelPackages(ctx context.Context, family types.PanelFamily, index int, trial bool) ([]panel.Package, error)
}

type catalogService struct {
	ServiceParams
}

func NewCatalogService(params ServiceParams) CatalogService {
	return &catalogService{ServiceParams: params}
}

func (s *catalogService) CreateProduct(ctx context.Context, prod *product.Product) error {
	if prod.ID == "" {
		prod.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT)
	}
	prod.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := prod.Validate(); err != nil {
		return err
	}
	return s.ProductRepo.Create(ctx, prod)
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	return s.ProductRepo.Get(ctx, id)
}

func (s *catalogService) UpdateProduct(ctx context.Context, prod *product.Product) error {
	if err := prod.Validate(); err != nil {
		return err
	}
	return s.ProductRepo.Update(ctx, prod)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.ProductRepo.Delete(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context, includeInactive bool) ([]*product.Product, error) {
	products, err := s.ProductRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if !includeInactive {
		products = lo.Filter(products, func(p *product.Product, _ int) bool {
			return p.Active
		})
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].DisplayOrder < products[j].DisplayOrder
	})
	return products, nil
}

func (s *catalogService) PanelPackages(ctx context.Context, family types.PanelFamily, index int, trial bool) ([]panel.Package, error) {
	cacheKey := fmt.Sprintf("panel_packages:%s:%d:%t", family, index, trial)
	if cached, ok := s.Cache.Get(ctx, cacheKey); ok {
		if packages, ok := cached.([]panel.Package); ok {
			return packages, nil
		}
	}

	var packages []panel.Package
	switch family {
	case types.PanelFamilyXtreamUI:
		client, _, ok, err := s.Panels.XtreamUI(ctx, index)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.Logger.Warnw("panel index out of range, falling back to instance 0",
				"panel_family", family, "panel_index", index)
		}
		if trial {
			packages, err = client.GetTrialPackages(ctx)
		} else {
			packages, err = client.GetPackages(ctx)
		}
		if err != nil {
			return nil, err
		}

	case types.PanelFamilyXuiOne:
		client, _, ok, err := s.Panels.XuiOne(ctx, index)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.Logger.Warnw("panel index out of range, falling back to instance 0",
				"panel_family", family, "panel_index", index)
		}
		if trial {
			packages, err = client.GetTrialPackages(ctx)
		} else {
			packages, err = client.GetPackages(ctx)
		}
		if err != nil {
			return nil, err
		}

	default:
		return nil, ierr.NewErrorf("unknown panel family %s", family).
			Mark(ierr.ErrValidation)
	}

	s.Cache.Set(ctx, cacheKey, packages, panelCatalogTTL)
	return packages, nil
}
