package service

// Broadcaster is the room-addressed publish primitive the services fan out
// through. The hub implements it; tests substitute a recorder. Delivery is
// best-effort at-most-once: services persist durable state before publishing,
// so a dropped broadcast never loses data.
type Broadcaster interface {
	Publish(room, name string, payload any)
	PublishExcept(room, name string, payload any, exceptConnID string)
}
