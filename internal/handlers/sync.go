package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mgsetel/vigilacore/internal/services"
	"github.com/mgsetel/vigilacore/pkg/response"
)

type SyncHandler struct {
	syncService *services.SyncService
}

func NewSyncHandler(syncService *services.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

type triggerSyncRequest struct {
	TenantID string `json:"tenant_id"`
}

// Trigger enqueues an on-demand sync session. The worker runs it
// with the same mutual exclusion as scheduled sessions.
// POST /api/v1/sync/trigger
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req triggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.syncService.TriggerManual(req.TenantID); err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"enqueued": true})
}
