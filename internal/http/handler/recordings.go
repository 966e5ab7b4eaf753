package handler

import (
	"errors"
	"net/http"
	"os"

	"github.com/edgewatch/livepatrol/internal/recorder"
	"github.com/edgewatch/livepatrol/internal/redis"
	"github.com/edgewatch/livepatrol/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecordingsHandler exposes recording commands and the on-disk history.
//
//   - POST   /channels/{id}/record/start     → start a recording attempt
//   - POST   /channels/{id}/record/stop      → request cooperative stop
//   - GET    /channels/{id}/recordings       → list finalized recordings
//   - DELETE /channels/{id}/recordings/{name} → delete one recording file
type RecordingsHandler struct {
	log *zap.Logger
	svc *service.RecorderService
}

func NewRecordingsHandler(log *zap.Logger, svc *service.RecorderService) *RecordingsHandler {
	return &RecordingsHandler{log: log.Named("recordings"), svc: svc}
}

// StartRecording handles POST /channels/:id/record.
//
// Status Codes:
//   - 202 Accepted → attempt started (resolution happens asynchronously)
//   - 200 OK       → an attempt was already alive; nothing changed
//   - 404 Not Found
func (h *RecordingsHandler) StartRecording(c *gin.Context) {
	id := c.Param("id")

	started, err := h.svc.StartRecording(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, redis.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if !started {
		c.JSON(http.StatusOK, gin.H{"id": id, "started": false})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "started": true})
}

// StopRecording handles DELETE /channels/:id/record. Idempotent: stopping an
// idle channel is a no-op.
func (h *RecordingsHandler) StopRecording(c *gin.Context) {
	id := c.Param("id")
	h.svc.StopRecording(id)
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

// ListRecordings handles GET /channels/:id/recordings, newest first.
func (h *RecordingsHandler) ListRecordings(c *gin.Context) {
	recs, err := h.svc.Recordings(c.Param("id"))
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if recs == nil {
		recs = []*recorder.RecordingFile{}
	}
	c.JSON(http.StatusOK, recs)
}

// DeleteRecording handles DELETE /channels/:id/recordings/:name.
func (h *RecordingsHandler) DeleteRecording(c *gin.Context) {
	id, name := c.Param("id"), c.Param("name")

	if err := h.svc.DeleteRecording(id, name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"message": "recording not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
