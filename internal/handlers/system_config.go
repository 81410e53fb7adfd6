package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mgsetel/vigilacore/internal/services"
	"gorm.io/gorm"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(db *gorm.DB) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: services.NewSystemConfigService(db),
	}
}

func (h *SystemConfigHandler) GetSyncSettings(c *gin.Context) {
	settings := h.configService.GetSyncSettings()
	c.JSON(http.StatusOK, settings)
}

func (h *SystemConfigHandler) UpdateSyncSettings(c *gin.Context) {
	var req services.UpdateSyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configService.UpdateSyncSettings(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.configService.GetSyncSettings())
}

func (h *SystemConfigHandler) GetByGroup(c *gin.Context) {
	group := c.Query("group")
	if group == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group is required"})
		return
	}

	configs, err := h.configService.GetByGroup(group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, configs)
}
