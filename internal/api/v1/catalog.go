package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/streambill/streambill/internal/api/dto"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/service"
	"github.com/streambill/streambill/internal/types"
)

type CatalogHandler struct {
	catalog service.CatalogService
	log     *logger.Logger
}

func NewCatalogHandler(catalog service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log}
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	prod := req.ToProduct("")
	if err := h.catalog.CreateProduct(ctx, prod); err != nil {
		h.log.Errorw("failed to create product", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, prod)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	ctx := c.Request.Context()
	prod, err := h.catalog.GetProduct(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, prod)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	includeInactive := c.Query("include_inactive") == "true"

	products, err := h.catalog.ListProducts(ctx, includeInactive)
	if err != nil {
		h.log.Errorw("failed to list products", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	prod := req.ToProduct(c.Param("id"))
	if err := h.catalog.UpdateProduct(ctx, prod); err != nil {
		h.log.Errorw("failed to update product", "product_id", prod.ID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, prod)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.catalog.DeleteProduct(ctx, c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// PanelPackages lists the packages one panel instance currently offers,
// served from a short-lived cache.
func (h *CatalogHandler) PanelPackages(c *gin.Context) {
	ctx := c.Request.Context()

	family := types.PanelFamily(c.Param("family"))
	index, err := strconv.Atoi(c.DefaultQuery("index", "0"))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Panel index must be a number").
			Mark(ierr.ErrValidation))
		return
	}
	trial := c.Query("trial") == "true"

	packages, err := h.catalog.PanelPackages(ctx, family, index, trial)
	if err != nil {
		h.log.Errorw("failed to fetch panel packages",
			"panel_family", family, "panel_index", index, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, packages)
}
