package hub

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/event"
	"github.com/OxyHQ/mention-api/internal/model"
	"github.com/OxyHQ/mention-api/internal/service"
)

const handlerTimeout = 10 * time.Second

// ChatHandler processes inbound events on the chat namespace. Room
// membership stays in the hub; everything durable goes through the chat
// service. Errors are reported to the originating connection only.
type ChatHandler struct {
	hub  *Hub
	chat *service.ChatService
}

func NewChatHandler(hub *Hub, chat *service.ChatService) *ChatHandler {
	return &ChatHandler{hub: hub, chat: chat}
}

// HandleEvent dispatches a chat namespace event.
func (ch *ChatHandler) HandleEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventJoinConversation:
		ch.handleJoinConversation(ev, c)
	case event.EventCreateConversation:
		ch.handleCreateConversation(ev, c)
	case event.EventTyping, event.EventStopTyping:
		ch.handleTyping(ev, c)
	case event.EventSendMessage, event.EventSendSecureMessage,
		event.EventScheduleMessage, event.EventSendEphemeralMessage:
		ch.handleSendMessage(ev, c)
	case event.EventSendVoiceMessage:
		ch.handleSendVoiceMessage(ev, c)
	case event.EventSendSticker:
		ch.handleSendSticker(ev, c)
	case event.EventEditMessage:
		ch.handleEditMessage(ev, c)
	case event.EventDeleteMessage:
		ch.handleDeleteMessage(ev, c, false)
	case event.EventUnsendMessage:
		ch.handleDeleteMessage(ev, c, true)
	case event.EventForwardMessage:
		ch.handleForwardMessage(ev, c)
	case event.EventMessageRead:
		ch.handleMessageRead(ev, c)
	case event.EventMessageDelivered:
		ch.handleMessageDelivered(ev, c)
	case event.EventPinMessage:
		ch.handlePinMessage(ev, c)
	case event.EventReactionMessage:
		ch.handleReaction(ev, c)
	case event.EventCreatePoll:
		ch.handleCreatePoll(ev, c)
	case event.EventVotePoll:
		ch.handleVotePoll(ev, c)
	case event.EventReportMessage:
		ch.handleReportMessage(ev, c)
	default:
		log.Printf("unknown chat event type: %s", ev.Event)
	}
}

func (ch *ChatHandler) handleJoinConversation(ev event.WsEvent, c *Client) {
	var payload event.JoinConversationPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse joinConversation payload"))
		return
	}
	if payload.ConversationID == "" {
		sendError(c, errs.ErrValidation.WithMsg("conversationId is required"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := ch.chat.VerifyParticipant(ctx, c.userID, payload.ConversationID); err != nil {
		sendError(c, err)
		return
	}

	room := event.ConversationRoom(payload.ConversationID)
	ch.hub.JoinRoom(c, room)
	ch.hub.Publish(room, event.EventUserJoined, event.UserJoinedPayload{
		ConversationID: payload.ConversationID,
		UserID:         c.userID,
	})
}

func (ch *ChatHandler) handleCreateConversation(ev event.WsEvent, c *Client) {
	var payload event.CreateConversationPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse createConversation payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	conv, err := ch.chat.CreateConversation(ctx, c.userID, payload)
	if err != nil {
		sendError(c, err)
		return
	}

	// creator joins its room right away; other participants join on demand
	ch.hub.JoinRoom(c, event.ConversationRoom(conv.ID.Hex()))
}

// handleTyping relays the indicator to everyone in the room except the
// typist. Nothing is persisted; gone is gone.
func (ch *ChatHandler) handleTyping(ev event.WsEvent, c *Client) {
	var payload event.TypingPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return
	}

	room := event.ConversationRoom(payload.ConversationID)
	if !c.InRoom(room) {
		return
	}

	ch.hub.PublishExcept(room, ev.Event, event.TypingBroadcast{
		ConversationID: payload.ConversationID,
		UserID:         c.userID,
	}, c.ID)
}

func (ch *ChatHandler) handleSendMessage(ev event.WsEvent, c *Client) {
	var payload event.SendMessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse message payload"))
		return
	}
	if ev.Event == event.EventSendSecureMessage {
		payload.Encrypted = true
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := ch.chat.SendMessage(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleSendVoiceMessage(ev event.WsEvent, c *Client) {
	var payload event.VoiceMessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse voice message payload"))
		return
	}
	if payload.VoiceURL == "" {
		sendError(c, errs.ErrValidation.WithMsg("voiceUrl is required"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	_, err := ch.chat.SendMessage(ctx, c.userID, event.SendMessagePayload{
		ConversationID: payload.ConversationID,
		Body:           payload.Body,
		Attachments:    []model.Attachment{{Type: model.AttachmentVoice, URL: payload.VoiceURL}},
	})
	if err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleSendSticker(ev event.WsEvent, c *Client) {
	var payload event.StickerPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse sticker payload"))
		return
	}
	if payload.StickerURL == "" {
		sendError(c, errs.ErrValidation.WithMsg("stickerUrl is required"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	_, err := ch.chat.SendMessage(ctx, c.userID, event.SendMessagePayload{
		ConversationID: payload.ConversationID,
		Attachments:    []model.Attachment{{Type: model.AttachmentSticker, URL: payload.StickerURL}},
	})
	if err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleEditMessage(ev event.WsEvent, c *Client) {
	var payload event.EditMessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse editMessage payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := ch.chat.EditMessage(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleDeleteMessage(ev event.WsEvent, c *Client, unsend bool) {
	var payload event.MessageRefPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse delete payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := ch.chat.DeleteMessage(ctx, c.userID, payload, unsend); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleForwardMessage(ev event.WsEvent, c *Client) {
	var payload event.ForwardMessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse forwardMessage payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := ch.chat.ForwardMessage(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleMessageRead(ev event.WsEvent, c *Client) {
	var payload event.MessageRefPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse messageRead payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := ch.chat.MarkRead(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleMessageDelivered(ev event.WsEvent, c *Client) {
	var payload event.MessageRefPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse messageDelivered payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := ch.chat.MarkDelivered(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handlePinMessage(ev event.WsEvent, c *Client) {
	var payload event.PinMessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse pinMessage payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := ch.chat.PinMessage(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleReaction(ev event.WsEvent, c *Client) {
	var payload event.ReactionPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse reaction payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := ch.chat.ReactToMessage(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleCreatePoll(ev event.WsEvent, c *Client) {
	var payload event.CreatePollPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse createPoll payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := ch.chat.CreatePoll(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleVotePoll(ev event.WsEvent, c *Client) {
	var payload event.VotePollPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse votePoll payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := ch.chat.VotePoll(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func (ch *ChatHandler) handleReportMessage(ev event.WsEvent, c *Client) {
	var payload event.ReportMessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		sendError(c, errs.ErrValidation.WithMsg("failed to parse reportMessage payload"))
		return
	}

	ctx, cancel := handlerContext()
	defer cancel()

	if err := ch.chat.ReportMessage(ctx, c.userID, payload); err != nil {
		sendError(c, err)
	}
}

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

// sendError reports a failure to the originating connection only; other
// room members never see another client's errors.
func sendError(c *Client, err error) {
	c.Send(event.New(event.EventError, model.ErrorPayload{
		Code:    errs.Reason(err),
		Message: err.Error(),
	}))
}
