package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
	"github.com/edgewatch/livepatrol/internal/redis"
	"github.com/edgewatch/livepatrol/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChannelsHandler provides RESTful HTTP handlers for Channel resources.
//
// Supported operations:
//   - GET    /channels        → List all channels
//   - POST   /channels        → Create a new channel
//   - GET    /channels/{id}   → Retrieve a channel by ID
//   - PATCH  /channels/{id}   → Modify an existing channel (partial update)
//   - DELETE /channels/{id}   → Remove a channel (stops any live attempt)
//   - GET    /channels/status → Cached per-channel status summary
//   - GET    /channels/{id}/logs → Capture-process output tail
type ChannelsHandler struct {
	log        *zap.Logger
	svc        *service.RecorderService
	summarySvc *service.SummaryService
}

// NewChannelsHandler constructs a ChannelsHandler instance.
func NewChannelsHandler(log *zap.Logger, svc *service.RecorderService) *ChannelsHandler {
	// Snapshot service for the status polling surface
	summarySvc := service.NewSummaryService(
		log,
		svc,
		service.SummaryOptions{
			TTL:               500 * time.Millisecond,
			RefreshTimeout:    300 * time.Millisecond,
			AllowStaleOnError: true,
		},
	)

	return &ChannelsHandler{
		log:        log.Named("channels"),
		svc:        svc,
		summarySvc: summarySvc,
	}
}

// GetChannelList handles GET /channels.
//
// Status Codes:
//   - 200 OK → JSON array of channels, X-Total-Count header
//   - 500 Internal Server Error
func (h *ChannelsHandler) GetChannelList(c *gin.Context) {
	chs, err := h.svc.ListChannels(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if chs == nil {
		chs = []*channel.Channel{}
	}
	c.Header("X-Total-Count", strconv.Itoa(len(chs)))
	c.JSON(http.StatusOK, chs)
}

// CreateChannel handles POST /channels.
//
// Status Codes:
//   - 201 Created
//   - 400 Bad Request  → malformed body or invalid fields
//   - 409 Conflict     → room ID already tracked
//   - 500 Internal Server Error
func (h *ChannelsHandler) CreateChannel(c *gin.Context) {
	var ch channel.Channel
	if err := bind(c.Request, &ch); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := h.svc.CreateChannel(c.Request.Context(), &ch); err != nil {
		switch {
		case errors.Is(err, service.ErrChannelExists):
			c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
		default:
			c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": ch.ID})
}

// GetChannel handles GET /channels/:id.
func (h *ChannelsHandler) GetChannel(c *gin.Context) {
	ch, err := h.svc.GetChannel(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, redis.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ch)
}

// ModifyChannel handles PATCH /channels/:id (partial update of remark and
// encode parameter overrides).
func (h *ChannelsHandler) ModifyChannel(c *gin.Context) {
	var mod service.ChannelMod
	if err := bind(c.Request, &mod); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ch, err := h.svc.ModifyChannel(c.Request.Context(), c.Param("id"), mod)
	if err != nil {
		if errors.Is(err, redis.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ch)
}

// DeleteChannel handles DELETE /channels/:id. Any live attempt is stopped
// and fully reaped before the channel leaves the store.
func (h *ChannelsHandler) DeleteChannel(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteChannel(c.Request.Context(), id); err != nil {
		if errors.Is(err, redis.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// Status handles GET /channels/status: the cached summary backing the
// polling surface.
func (h *ChannelsHandler) Status(c *gin.Context) {
	res, err := h.summarySvc.Get(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if res.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Header("X-Summary-Generated-At", res.GeneratedAt.UTC().Format(time.RFC3339Nano))

	c.JSON(http.StatusOK, gin.H{
		"patrol":   res.PatrolState,
		"channels": res.Data,
	})
}

// GetChannelLogs handles GET /channels/:id/logs?lines=N: the tail of the
// capture-process output for the channel's current attempt.
func (h *ChannelsHandler) GetChannelLogs(c *gin.Context) {
	lines, _ := strconv.Atoi(c.DefaultQuery("lines", "100"))

	logs, ok := h.svc.AttemptLogs(c.Param("id"), lines)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "no recording attempt for channel"})
		return
	}
	if logs == nil {
		logs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
