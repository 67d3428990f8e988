package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message delivery statuses. Transitions are monotonic: a message never moves
// back from read to delivered or sent. StatusScheduled gates visibility until
// the scheduled instant elapses.
const (
	StatusScheduled = "scheduled"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

var statusRank = map[string]int{
	StatusScheduled: 0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// StatusAdvances reports whether moving from to next respects monotonicity.
func StatusAdvances(from, next string) bool {
	return statusRank[next] > statusRank[from]
}

// Attachment types
const (
	AttachmentImage   = "image"
	AttachmentVideo   = "video"
	AttachmentAudio   = "audio"
	AttachmentFile    = "file"
	AttachmentSticker = "sticker"
	AttachmentVoice   = "voice"
)

// Message represents a chat message in MongoDB
type Message struct {
	ID                  primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ConversationID      primitive.ObjectID  `json:"conversationId" bson:"conversation_id"`
	SenderID            string              `json:"senderId" bson:"sender_id"`
	Body                string              `json:"body" bson:"body"`
	Status              string              `json:"status" bson:"status"`
	EditedAt            *time.Time          `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
	ForwardedFrom       *primitive.ObjectID `json:"forwardedFrom,omitempty" bson:"forwarded_from,omitempty"`
	Attachments         []Attachment        `json:"attachments,omitempty" bson:"attachments,omitempty"`
	ReplyTo             *primitive.ObjectID `json:"replyTo,omitempty" bson:"reply_to,omitempty"`
	Reactions           []Reaction          `json:"reactions,omitempty" bson:"reactions,omitempty"`
	Pinned              bool                `json:"pinned" bson:"pinned"`
	PinnedBy            string              `json:"pinnedBy,omitempty" bson:"pinned_by,omitempty"`
	PinnedAt            *time.Time          `json:"pinnedAt,omitempty" bson:"pinned_at,omitempty"`
	ScheduledAt         *time.Time          `json:"scheduledAt,omitempty" bson:"scheduled_at,omitempty"`
	EphemeralExpiresAt  *time.Time          `json:"ephemeralExpiresAt,omitempty" bson:"ephemeral_expires_at,omitempty"`
	Encrypted           bool                `json:"encrypted" bson:"encrypted"`
	EncryptionAlgorithm string              `json:"encryptionAlgorithm,omitempty" bson:"encryption_algorithm,omitempty"`
	Signature           string              `json:"signature,omitempty" bson:"signature,omitempty"`
	Poll                *Poll               `json:"poll,omitempty" bson:"poll,omitempty"`
	ReadBy              []string            `json:"readBy,omitempty" bson:"read_by,omitempty"`
	CreatedAt           time.Time           `json:"createdAt" bson:"created_at"`
}

// Attachment is a typed URL carried on a message.
type Attachment struct {
	Type string `json:"type" bson:"type"`
	URL  string `json:"url" bson:"url"`
}

// Reaction is one actor's emoji on a message. An actor may add several
// distinct emoji, so reactions form a multiset.
type Reaction struct {
	Emoji  string `json:"emoji" bson:"emoji"`
	UserID string `json:"userId" bson:"user_id"`
}

// Poll holds a question, ordered options and a parallel vote-count array.
// len(Votes) == len(Options) is fixed at creation and never drifts.
type Poll struct {
	Question string   `json:"question" bson:"question"`
	Options  []string `json:"options" bson:"options"`
	Votes    []int    `json:"votes" bson:"votes"`
}

// ExpiredEphemeral reports whether the message must be treated as deleted
// even if the purge has not run yet.
func (m *Message) ExpiredEphemeral(now time.Time) bool {
	return m.EphemeralExpiresAt != nil && m.EphemeralExpiresAt.Before(now)
}

// ErrorPayload is an error response sent to a client over WebSocket.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
