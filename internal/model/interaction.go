package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interaction kinds. Each (actor, post, kind) tuple is unique: a duplicate
// like or bookmark from the same actor is rejected at the index.
const (
	InteractionLike     = "like"
	InteractionBookmark = "bookmark"
	InteractionRepost   = "repost"
)

// Interaction is the authoritative per-actor-per-post record from which
// post counters are derived. Counters are never mutated independently.
type Interaction struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Kind      string             `json:"kind" bson:"kind"`
	ActorID   string             `json:"actorId" bson:"actor_id"`
	PostID    string             `json:"postId" bson:"post_id"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}
