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

type ServiceHandler struct {
	accounts service.AccountService
	log      *logger.Logger
}

func NewServiceHandler(accounts service.AccountService, log *logger.Logger) *ServiceHandler {
	return &ServiceHandler{accounts: accounts, log: log}
}

func (h *ServiceHandler) GetService(c *gin.Context) {
	ctx := c.Request.Context()
	rec, err := h.accounts.GetService(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *ServiceHandler) ListServices(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.ServiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	services, err := h.accounts.ListServices(ctx, &filter)
	if err != nil {
		h.log.Errorw("failed to list services", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ListServicesResponse{Items: services, Total: len(services)})
}

func (h *ServiceHandler) ServiceHistory(c *gin.Context) {
	ctx := c.Request.Context()
	entries, err := h.accounts.ServiceHistory(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ServiceHistoryResponse{Items: entries})
}

func (h *ServiceHandler) bindAction(c *gin.Context) (*dto.ServiceActionRequest, bool) {
	var req dto.ServiceActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("A reason is required for lifecycle actions").
			Mark(ierr.ErrValidation))
		return nil, false
	}
	return &req, true
}

func (h *ServiceHandler) SuspendService(c *gin.Context) {
	req, ok := h.bindAction(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.accounts.SuspendService(ctx, c.Param("id"), req.Reason, req.ActorOrDefault()); err != nil {
		h.log.Errorw("failed to suspend service", "service_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service suspended successfully"})
}

func (h *ServiceHandler) ActivateService(c *gin.Context) {
	req, ok := h.bindAction(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.accounts.ActivateService(ctx, c.Param("id"), req.Reason, req.ActorOrDefault()); err != nil {
		h.log.Errorw("failed to activate service", "service_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service activated successfully"})
}

func (h *ServiceHandler) CancelService(c *gin.Context) {
	req, ok := h.bindAction(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.accounts.CancelService(ctx, c.Param("id"), req.Reason, req.ActorOrDefault()); err != nil {
		h.log.Errorw("failed to cancel service", "service_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service cancelled successfully"})
}

func (h *ServiceHandler) ExtendService(c *gin.Context) {
	var req dto.ExtendServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("A remote package id and a reason are required").
			Mark(ierr.ErrValidation))
		return
	}
	ctx := c.Request.Context()
	if err := h.accounts.ExtendService(ctx, c.Param("id"), req.RemotePackageID, req.TermMonths, req.Reason, req.ActorOrDefault()); err != nil {
		h.log.Errorw("failed to extend service", "service_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service extended successfully"})
}

func (h *ServiceHandler) RefundService(c *gin.Context) {
	req, ok := h.bindAction(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.accounts.RefundService(ctx, c.Param("id"), req.Reason, req.ActorOrDefault()); err != nil {
		h.log.Errorw("failed to refund service", "service_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service refunded successfully"})
}
