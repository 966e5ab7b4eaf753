package middleware

import (
	"net/http"

	"github.com/edgewatch/livepatrol/internal/domain/channel"
	"github.com/gin-gonic/gin"
)

// RequireValidRoomID ensures the path param ":id" is a well-formed room ID
// (non-empty digit string).
func RequireValidRoomID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := channel.ValidateID(c.Param("id")); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Next()
	}
}
