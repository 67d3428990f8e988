package event

import (
	"time"

	"github.com/OxyHQ/mention-api/internal/model"
)

// Client to Server payloads

type JoinConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type CreateConversationPayload struct {
	Participants []string `json:"participants"`
	Type         string   `json:"type"`
	Topic        string   `json:"topic"`
	Owner        string   `json:"owner"`
	IsEncrypted  bool     `json:"isEncrypted"`
	TTLSeconds   int64    `json:"ttlSeconds"`
}

type SendMessagePayload struct {
	ConversationID string             `json:"conversationId"`
	Body           string             `json:"body"`
	ReplyTo        string             `json:"replyTo,omitempty"`
	Attachments    []model.Attachment `json:"attachments,omitempty"`

	// Secure message fields
	Encrypted           bool   `json:"encrypted,omitempty"`
	EncryptionAlgorithm string `json:"encryptionAlgorithm,omitempty"`
	Signature           string `json:"signature,omitempty"`

	// Deferred-effect fields
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	ExpiresInMs int64      `json:"expiresIn,omitempty"`
}

type EditMessagePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	NewBody        string `json:"newBody"`
}

type MessageRefPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

type ForwardMessagePayload struct {
	FromConversationID string `json:"fromConversationId"`
	ToConversationID   string `json:"toConversationId"`
	MessageID          string `json:"messageId"`
}

type PinMessagePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Pin            bool   `json:"pin"`
}

type ReactionPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Emoji          string `json:"emoji"`
}

type VoiceMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Body           string `json:"body"`
	VoiceURL       string `json:"voiceUrl"`
}

type StickerPayload struct {
	ConversationID string `json:"conversationId"`
	StickerURL     string `json:"stickerUrl"`
}

type CreatePollPayload struct {
	ConversationID string   `json:"conversationId"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
}

type VotePollPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	OptionIndex    int    `json:"optionIndex"`
}

type ReportMessagePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Reason         string `json:"reason"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

type MarkNotificationReadPayload struct {
	NotificationID string `json:"notificationId"`
}

// Server to Client payloads

type UserJoinedPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

type TypingBroadcast struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

type MessageEditedPayload struct {
	MessageID string    `json:"messageId"`
	NewBody   string    `json:"newBody"`
	EditedAt  time.Time `json:"editedAt"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

type MessageForwardedPayload struct {
	MessageID   string    `json:"messageId"`
	ForwardedAt time.Time `json:"forwardedAt"`
}

type MessageStatusPayload struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	ReadBy    string `json:"readBy,omitempty"`
}

type MessagePinnedPayload struct {
	MessageID string    `json:"messageId"`
	Pinned    bool      `json:"pinned"`
	PinnedBy  string    `json:"pinnedBy"`
	PinnedAt  time.Time `json:"pinnedAt"`
}

type MessageReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
}

type PollVotedPayload struct {
	MessageID   string `json:"messageId"`
	OptionIndex int    `json:"optionIndex"`
	Votes       []int  `json:"votes"`
}

type MessageReportedPayload struct {
	MessageID string `json:"messageId"`
	Reporter  string `json:"reporter"`
	Reason    string `json:"reason"`
}

// PostCountersPayload is broadcast to a post room whenever the counter
// snapshot is recomputed.
type PostCountersPayload struct {
	PostID       string           `json:"postId"`
	UserID       string           `json:"userId"`
	IsLiked      *bool            `json:"isLiked,omitempty"`
	IsBookmarked *bool            `json:"isBookmarked,omitempty"`
	Counts       model.PostCounts `json:"_count"`
}
