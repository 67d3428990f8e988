package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostCounts is the derived counter snapshot persisted on a post. It is
// recomputed from interaction records and reply/repost/quote linkage, never
// incremented blindly.
type PostCounts struct {
	Likes     int64 `json:"likes" bson:"likes"`
	Quotes    int64 `json:"quotes" bson:"quotes"`
	Reposts   int64 `json:"reposts" bson:"reposts"`
	Bookmarks int64 `json:"bookmarks" bson:"bookmarks"`
	Replies   int64 `json:"replies" bson:"replies"`
}

// Post is the slice of the post document this service reads and writes.
// Post CRUD itself belongs to the main API; only the counter snapshot and
// the linkage fields used for counting are modelled here.
type Post struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID          string              `json:"userId" bson:"userID"`
	Counts          PostCounts          `json:"_count" bson:"_count"`
	InReplyToStatus *primitive.ObjectID `json:"inReplyToStatusId,omitempty" bson:"in_reply_to_status_id,omitempty"`
	QuotedStatus    *primitive.ObjectID `json:"quotedStatusId,omitempty" bson:"quoted_status_id,omitempty"`
	RepostOf        *primitive.ObjectID `json:"repostOf,omitempty" bson:"repost_of,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"created_at"`
}

// Report is a user report filed against a message.
type Report struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversation_id"`
	MessageID      primitive.ObjectID `json:"messageId" bson:"message_id"`
	Reporter       string             `json:"reporter" bson:"reporter"`
	Reason         string             `json:"reason" bson:"reason"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
}
