package hub

import (
	"encoding/json"
	"log"

	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/event"
)

// InteractionHandler processes inbound events on the interactions
// namespace. Post rooms are open subscriptions: posts are public, so no
// authorization gate beyond the namespace's connection auth.
type InteractionHandler struct {
	hub *Hub
}

func NewInteractionHandler(hub *Hub) *InteractionHandler {
	return &InteractionHandler{hub: hub}
}

type postRefPayload struct {
	PostID string `json:"postId"`
}

func (ih *InteractionHandler) HandleEvent(ev event.WsEvent, c *Client) {
	var payload postRefPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse post payload"))
		return
	}
	if payload.PostID == "" {
		sendError(c, errs.ErrValidation.WithMsg("postId is required"))
		return
	}

	switch ev.Event {
	case event.EventJoinPost:
		ih.hub.JoinRoom(c, event.PostRoom(payload.PostID))
	case event.EventLeavePost:
		ih.hub.LeaveRoom(c, event.PostRoom(payload.PostID))
	default:
		log.Printf("unknown interaction event type: %s", ev.Event)
	}
}
