package handler

import (
	"net/http"

	"github.com/edgewatch/livepatrol/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PatrolHandler exposes the patrol scheduler's toggle and status.
type PatrolHandler struct {
	log *zap.Logger
	svc *service.RecorderService
}

func NewPatrolHandler(log *zap.Logger, svc *service.RecorderService) *PatrolHandler {
	return &PatrolHandler{log: log.Named("patrol"), svc: svc}
}

// Start handles POST /patrol. Idempotent.
func (h *PatrolHandler) Start(c *gin.Context) {
	h.svc.StartPatrol()
	c.JSON(http.StatusOK, gin.H{"running": true})
}

// Stop handles DELETE /patrol. Blocks until the loop has fully exited.
func (h *PatrolHandler) Stop(c *gin.Context) {
	h.svc.StopPatrol()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

// Get handles GET /patrol.
func (h *PatrolHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": h.svc.PatrolRunning(),
		"status":  h.svc.PatrolStatus(),
	})
}
