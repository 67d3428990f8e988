package hub

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OxyHQ/mention-api/internal/event"
)

const presenceTTL = 60 * time.Second

// Backplane mirrors room publishes over Redis pub/sub so a multi-instance
// deployment delivers to subscribers on every process, and tracks presence
// with TTL keys. Ordering is only guaranteed per room per publishing process.
type Backplane struct {
	rdb        *redis.Client
	channel    string
	instanceID string
}

type wireEvent struct {
	Origin string        `json:"origin"`
	Room   string        `json:"room"`
	Ev     event.WsEvent `json:"ev"`
}

// NewBackplane connects to Redis and verifies the connection.
func NewBackplane(addr, password string, db int, channel, instanceID string) (*Backplane, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Backplane{rdb: rdb, channel: channel, instanceID: instanceID}, nil
}

// Publish mirrors one room event to the shared channel. Best-effort: a failed
// mirror only degrades cross-instance delivery, local delivery already ran.
func (b *Backplane) Publish(ctx context.Context, room string, ev event.WsEvent) {
	raw, err := json.Marshal(wireEvent{Origin: b.instanceID, Room: room, Ev: ev})
	if err != nil {
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		log.Printf("backplane publish failed: %v", err)
	}
}

// Run subscribes to the shared channel and hands foreign-origin events to
// deliver. Blocks until ctx is cancelled.
func (b *Backplane) Run(ctx context.Context, deliver func(room string, ev event.WsEvent)) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var we wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &we); err != nil {
				log.Printf("backplane decode failed: %v", err)
				continue
			}
			if we.Origin == b.instanceID {
				continue // already delivered locally
			}
			deliver(we.Room, we.Ev)
		}
	}
}

// presence key: presence:<user> -> instance id, TTL controls online validity
func presenceKey(userID string) string { return "presence:" + userID }

// PresenceOnline marks the user online on this instance and renews the TTL.
func (b *Backplane) PresenceOnline(ctx context.Context, userID string) error {
	return b.rdb.Set(ctx, presenceKey(userID), b.instanceID, presenceTTL).Err()
}

// PresenceOffline clears the user's presence key.
func (b *Backplane) PresenceOffline(ctx context.Context, userID string) error {
	return b.rdb.Del(ctx, presenceKey(userID)).Err()
}

// PresenceLookup reports whether the user is online anywhere.
func (b *Backplane) PresenceLookup(ctx context.Context, userID string) (string, bool, error) {
	val, err := b.rdb.Get(ctx, presenceKey(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Close releases the Redis connection pool.
func (b *Backplane) Close() error {
	return b.rdb.Close()
}
