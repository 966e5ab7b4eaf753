package handler

import (
	"net/http"

	"github.com/edgewatch/livepatrol/internal/domain/settings"
	"github.com/edgewatch/livepatrol/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsHandler exposes the global settings record (patrol window + proxy
// policy). Settings apply to attempts started after the save; running
// attempts keep the policy they started with.
type SettingsHandler struct {
	log *zap.Logger
	svc *service.RecorderService
}

func NewSettingsHandler(log *zap.Logger, svc *service.RecorderService) *SettingsHandler {
	return &SettingsHandler{log: log.Named("settings"), svc: svc}
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	s, err := h.svc.GetSettings(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

// Put handles PUT /settings (full replacement).
func (h *SettingsHandler) Put(c *gin.Context) {
	var s settings.Settings
	if err := bind(c.Request, &s); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := h.svc.PutSettings(c.Request.Context(), &s); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}
