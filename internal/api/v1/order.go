package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streambill/streambill/internal/api/dto"
	ierr "github.com/streambill/streambill/internal/errors"
	"github.com/streambill/streambill/internal/logger"
	"github.com/streambill/streambill/internal/service"
	"github.com/streambill/streambill/internal/types"
)

type OrderHandler struct {
	orders      service.OrderService
	provisioner service.ProvisioningService
	log         *logger.Logger
}

func NewOrderHandler(orders service.OrderService, provisioner service.ProvisioningService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, provisioner: provisioner, log: log}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind order payload", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ord := req.ToOrder()
	if err := h.orders.CreateOrder(ctx, ord); err != nil {
		h.log.Errorw("failed to create order", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, ord)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx := c.Request.Context()
	ord, err := h.orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.OrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	orders, err := h.orders.ListOrders(ctx, &filter)
	if err != nil {
		h.log.Errorw("failed to list orders", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ListOrdersResponse{Items: orders, Total: len(orders)})
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.orders.CancelOrder(ctx, c.Param("id")); err != nil {
		h.log.Errorw("failed to cancel order", "order_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully"})
}

// MarkPaid confirms payment and kicks off provisioning. Gateways replaying
// the same confirmation get a conflict instead of a second provisioning run.
func (h *OrderHandler) MarkPaid(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ord, err := h.orders.MarkOrderPaid(ctx, c.Param("id"), req.PaymentMethod)
	if err != nil {
		h.log.Errorw("failed to mark order paid", "order_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ord)
}

// Reprovision re-runs provisioning for a paid order after an operator fixed
// the underlying panel problem.
func (h *OrderHandler) Reprovision(c *gin.Context) {
	ctx := c.Request.Context()
	ord, err := h.orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.provisioner.ProvisionPaidOrder(ctx, ord); err != nil {
		h.log.Errorw("failed to re-provision order", "order_id", ord.ID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order provisioning re-run"})
}
