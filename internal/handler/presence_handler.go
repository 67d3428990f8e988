package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/event"
)

// PresenceSource answers whether a user is online anywhere in the
// deployment. The Redis backplane implements it; a nil source means
// single-instance mode and the local hub view is authoritative.
type PresenceSource interface {
	PresenceLookup(ctx context.Context, userID string) (string, bool, error)
}

// RoomSizer is the hub's local membership view.
type RoomSizer interface {
	RoomSize(room string) int
}

type PresenceHandler interface {
	GetPresence(c *gin.Context)
}

type presenceHandler struct {
	rooms    RoomSizer
	presence PresenceSource
}

func NewPresenceHandler(rooms RoomSizer, presence PresenceSource) PresenceHandler {
	return &presenceHandler{rooms: rooms, presence: presence}
}

// GetPresence reports whether the user has at least one live connection.
// Cross-instance state comes from the presence source; when it is absent or
// failing, the local hub answers instead.
func (h *presenceHandler) GetPresence(c *gin.Context) {
	userID := c.Param("userId")
	if h.presence != nil {
		if _, online, err := h.presence.PresenceLookup(c.Request.Context(), userID); err == nil {
			c.JSON(http.StatusOK, gin.H{"userId": userID, "online": online})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"online": h.rooms.RoomSize(event.UserRoom(userID)) > 0,
	})
}
