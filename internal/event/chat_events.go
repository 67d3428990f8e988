package event

// Chat Event Types - Client to Server
const (
	EventJoinConversation     = "joinConversation"
	EventCreateConversation   = "createConversation"
	EventTyping               = "typing"
	EventStopTyping           = "stopTyping"
	EventSendMessage          = "sendMessage"
	EventSendSecureMessage    = "sendSecureMessage"
	EventEditMessage          = "editMessage"
	EventDeleteMessage        = "deleteMessage"
	EventForwardMessage       = "forwardMessage"
	EventMessageRead          = "messageRead"
	EventMessageDelivered     = "messageDelivered"
	EventPinMessage           = "pinMessage"
	EventReactionMessage      = "reactionMessage"
	EventScheduleMessage      = "scheduleMessage"
	EventUnsendMessage        = "unsendMessage"
	EventSendEphemeralMessage = "sendEphemeralMessage"
	EventSendVoiceMessage     = "sendVoiceMessage"
	EventSendSticker          = "sendSticker"
	EventCreatePoll           = "createPoll"
	EventVotePoll             = "votePoll"
	EventReportMessage        = "reportMessage"
)

// Chat Event Types - Server to Client
const (
	EventConversationCreated = "conversationCreated"
	EventUserJoined          = "userJoined"
	EventMessage             = "message"
	EventMessageEdited       = "messageEdited"
	EventMessageDeleted      = "messageDeleted"
	EventMessageUnsent       = "messageUnsent"
	EventMessageForwarded    = "messageForwarded"
	EventMessageStatusUpdate = "messageStatusUpdate"
	EventMessagePinned       = "messagePinned"
	EventMessageReaction     = "messageReaction"
	EventPollVoted           = "pollVoted"
	EventMessageReported     = "messageReported"
	EventError               = "error"
)

// Interaction Event Types - Server to Client (post rooms)
const (
	EventPostLiked        = "postLiked"
	EventPostUnliked      = "postUnliked"
	EventPostBookmarked   = "postBookmarked"
	EventPostUnbookmarked = "postUnbookmarked"
)

// Interaction + post room membership - Client to Server
const (
	EventJoinPost  = "joinPost"
	EventLeavePost = "leavePost"
)

// Notification Event Types
const (
	// Client to Server
	EventMarkNotificationRead     = "markNotificationRead"
	EventMarkAllNotificationsRead = "markAllNotificationsRead"

	// Server to Client
	EventNotification         = "notification"
	EventNotificationUpdated  = "notificationUpdated"
	EventAllNotificationsRead = "allNotificationsRead"
	EventNotificationDeleted  = "notificationDeleted"
)
