package event

// Room name helpers. Rooms are logical delivery groupings: one per identity,
// one per conversation, one per post.
func UserRoom(userID string) string         { return "user:" + userID }
func ConversationRoom(convID string) string { return "conversation:" + convID }
func PostRoom(postID string) string         { return "post:" + postID }
