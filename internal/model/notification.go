package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationReply   = "reply"
	NotificationMention = "mention"
	NotificationLike    = "like"
	NotificationFollow  = "follow"
	NotificationWelcome = "welcome"
)

// Entity types a notification can point at
const (
	EntityPost    = "post"
	EntityProfile = "profile"
	EntityMessage = "message"
)

// Notification is a persisted fan-out event with read-state tracking.
// Read is monotonic: it only ever flips false to true.
type Notification struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RecipientID string             `json:"recipientId" bson:"recipient_id"`
	ActorID     string             `json:"actorId" bson:"actor_id"`
	Type        string             `json:"type" bson:"type"`
	EntityID    string             `json:"entityId" bson:"entity_id"`
	EntityType  string             `json:"entityType" bson:"entity_type"`
	Read        bool               `json:"read" bson:"read"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
}
