package handler

import (
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/edgewatch/livepatrol/internal/service"
	"github.com/gin-gonic/gin"
)

// DebugHandler serves plaintext dumps of internal state.
// Registered in dev mode only.
type DebugHandler struct {
	svc *service.RecorderService
}

func NewDebugHandler(svc *service.RecorderService) *DebugHandler {
	return &DebugHandler{svc: svc}
}

// Registry handles GET /debug/registry. Dumps the live attempt registry.
func (h *DebugHandler) Registry(c *gin.Context) {
	c.String(http.StatusOK, spew.Sdump(h.svc.RegistrySnapshot()))
}
