package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation types
const (
	ConversationPrivate = "private"
	ConversationSecret  = "secret"
	ConversationGroup   = "group"
	ConversationChannel = "channel"
)

// Conversation represents a chat conversation/room in MongoDB
type Conversation struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Type          string             `json:"type" bson:"type"`
	Topic         string             `json:"topic" bson:"topic"`
	Participants  []string           `json:"participants" bson:"participants"`
	Owner         string             `json:"owner" bson:"owner,omitempty"`
	Admins        []string           `json:"admins" bson:"admins,omitempty"`
	MemberCount   int                `json:"memberCount" bson:"member_count"`
	IsEncrypted   bool               `json:"isEncrypted" bson:"is_encrypted"`
	EncryptionKey string             `json:"-" bson:"encryption_key,omitempty"`
	TTLSeconds    int64              `json:"ttlSeconds" bson:"ttl_seconds,omitempty"`
	ExpiresAt     *time.Time         `json:"expiresAt" bson:"expires_at,omitempty"`
	IsActive      bool               `json:"isActive" bson:"is_active"`
	LastMessageAt time.Time          `json:"lastMessageAt" bson:"last_message_at"`
	CreatedBy     string             `json:"createdBy" bson:"created_by"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// HasParticipant reports whether userID is in the participant set.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID may perform admin-restricted actions.
// Outside group/channel conversations every participant counts as admin.
func (c *Conversation) IsAdmin(userID string) bool {
	if c.Type != ConversationGroup && c.Type != ConversationChannel {
		return c.HasParticipant(userID)
	}
	if c.Owner == userID {
		return true
	}
	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}
	return false
}

// Expired reports whether a secret conversation's TTL has elapsed.
func (c *Conversation) Expired(now time.Time) bool {
	return c.Type == ConversationSecret && c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
