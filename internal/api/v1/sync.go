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

type SyncHandler struct {
	sync      service.SyncService
	lifecycle service.LifecycleService
	log       *logger.Logger
}

func NewSyncHandler(sync service.SyncService, lifecycle service.LifecycleService, log *logger.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, lifecycle: lifecycle, log: log}
}

// TriggerSync runs a full reconciliation of every active panel instance.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.sync.SyncPanels(ctx)
	if err != nil {
		h.log.Errorw("panel sync failed", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RunSweeps triggers the lifecycle housekeeping on demand.
func (h *SyncHandler) RunSweeps(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.lifecycle.RunSweeps(ctx)
	if err != nil {
		h.log.Errorw("lifecycle sweeps failed", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *SyncHandler) ListImportedUsers(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.ImportedUserFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	users, err := h.sync.ListImportedUsers(ctx, &filter)
	if err != nil {
		h.log.Errorw("failed to list imported users", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ListImportedUsersResponse{Items: users, Total: len(users)})
}
