package hub

import (
	"encoding/json"
	"log"

	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/event"
	"github.com/OxyHQ/mention-api/internal/service"
)

// NotificationHandler processes inbound events on the notifications
// namespace. The broadcast side lives in the notification service; this
// only accepts read-state commands from the socket.
type NotificationHandler struct {
	hub      *Hub
	notifier *service.NotificationService
}

func NewNotificationHandler(hub *Hub, notifier *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{hub: hub, notifier: notifier}
}

func (nh *NotificationHandler) HandleEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventMarkNotificationRead:
		nh.handleMarkRead(ev, c)
	case event.EventMarkAllNotificationsRead:
		nh.handleMarkAllRead(c)
	default:
		log.Printf("unknown notification event type: %s", ev.Event)
	}
}

func (nh *NotificationHandler) handleMarkRead(ev event.WsEvent, c *Client) {
	var payload event.MarkNotificationReadPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse markNotificationRead payload"))
		return
	}
	if payload.NotificationID == "" {
		sendError(c, errs.ErrValidation.WithMsg("notificationId is required"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := nh.notifier.MarkRead(ctx, payload.NotificationID, c.userID); err != nil {
		sendError(c, err)
	}
}

func (nh *NotificationHandler) handleMarkAllRead(c *Client) {
	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := nh.notifier.MarkAllRead(ctx, c.userID); err != nil {
		sendError(c, err)
	}
}
