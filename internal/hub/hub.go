package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"log"
	"sync"
	"time"

	"github.com/OxyHQ/mention-api/internal/event"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

// EventHandler processes inbound events for one namespace.
type EventHandler interface {
	HandleEvent(ev event.WsEvent, c *Client)
}

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client
}

// Hub is the room-addressed fanout broadcaster. Delivery is best-effort,
// at-most-once: durable state is persisted before anything is published, so
// a dropped broadcast never loses data.
type Hub struct {
	shards     [shardCount]*roomBucket
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage

	handlers   map[string]EventHandler // keyed by namespace
	handlersMu sync.RWMutex

	backplane *Backplane

	// OnDisconnect, when set, runs after a client is fully removed.
	OnDisconnect func(userID string)

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		inbound:    make(chan inboundMessage, 4096), // buffer for burst handling
		handlers:   make(map[string]EventHandler),
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}

	// run manager loop
	go h.run()

	// start worker loop
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in, ok := <-h.inbound:
					if !ok {
						return
					}

					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

// SetHandler registers the event handler for a namespace.
func (h *Hub) SetHandler(namespace string, handler EventHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[namespace] = handler
}

// AttachBackplane mirrors every publish onto a shared pub/sub channel and
// re-delivers events originated by other processes locally.
func (h *Hub) AttachBackplane(b *Backplane) {
	h.backplane = b
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		b.Run(h.ctx, func(room string, ev event.WsEvent) {
			h.publishLocal(room, ev, "")
		})
	}()
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	h.handlersMu.RLock()
	handler, ok := h.handlers[c.namespace]
	h.handlersMu.RUnlock()

	if !ok {
		log.Printf("no handler for namespace %s, dropping event %s", c.namespace, ev.Event)
		return
	}
	handler.HandleEvent(ev, c)
}

// Publish delivers an event to every connection subscribed to room, across
// processes when a backplane is attached.
func (h *Hub) Publish(room, name string, payload any) {
	ev := event.New(name, payload)
	h.publishLocal(room, ev, "")
	if h.backplane != nil {
		h.backplane.Publish(h.ctx, room, ev)
	}
}

// PublishExcept delivers to the room excluding one connection. Used for
// typing relay where the sender must not hear its own indicator.
func (h *Hub) PublishExcept(room, name string, payload any, exceptConnID string) {
	ev := event.New(name, payload)
	h.publishLocal(room, ev, exceptConnID)
	if h.backplane != nil {
		h.backplane.Publish(h.ctx, room, ev)
	}
}

func (h *Hub) publishLocal(room string, ev event.WsEvent, exceptConnID string) {
	sh := getShard(room)
	b := h.shards[sh]

	// collect clients while holding RLock
	b.RLock()
	members, ok := b.rooms[room]
	if !ok || len(members) == 0 {
		b.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(members))
	for id, c := range members {
		if id == exceptConnID {
			continue
		}
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver to clients without holding lock
	for _, c := range clients {
		select {
		case c.egress <- ev:
			// enqueued
		case <-c.ctx.Done():
			// client tearing down, drop
		case <-time.After(sendTimeout):
			// egress full -> apply policy
			log.Printf("egress full for client %s in room %s", c.ID, room)
			if kickOnFull {
				h.unregister <- c
			}
		}
	}
}

// JoinRoom subscribes a connection to a room. Authorization is the caller's
// responsibility; the hub only manages membership.
func (h *Hub) JoinRoom(c *Client, room string) {
	sh := getShard(room)
	b := h.shards[sh]
	b.Lock()
	members, ok := b.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		b.rooms[room] = members
	}
	members[c.ID] = c
	b.Unlock()

	c.addRoom(room)
}

// LeaveRoom unsubscribes a connection from a room.
func (h *Hub) LeaveRoom(c *Client, room string) {
	sh := getShard(room)
	b := h.shards[sh]
	b.Lock()
	if members, ok := b.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(b.rooms, room)
		}
	}
	b.Unlock()

	c.removeRoom(room)
}

// RoomSize returns the current number of subscribed connections.
func (h *Hub) RoomSize(room string) int {
	sh := getShard(room)
	b := h.shards[sh]
	b.RLock()
	defer b.RUnlock()
	return len(b.rooms[room])
}

func getShard(room string) uint32 {
	if room == "" {
		return 0
	}

	h := sha1.Sum([]byte(room))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (h *Hub) addClient(c *Client) {
	for _, room := range c.roomSnapshot() {
		sh := getShard(room)
		b := h.shards[sh]
		b.Lock()
		members, ok := b.rooms[room]
		if !ok {
			members = make(map[string]*Client)
			b.rooms[room] = members
		}
		members[c.ID] = c
		b.Unlock()
	}
	log.Printf("client %s registered for user %s on namespace %s", c.ID, c.userID, c.namespace)
}

func (h *Hub) removeClient(c *Client) {
	for _, room := range c.roomSnapshot() {
		sh := getShard(room)
		b := h.shards[sh]
		b.Lock()
		if members, ok := b.rooms[room]; ok {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(b.rooms, room)
			}
		}
		b.Unlock()
	}

	c.Close()
	log.Printf("client %s removed (user %s)", c.ID, c.userID)

	if h.OnDisconnect != nil {
		h.OnDisconnect(c.userID)
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()

	// Close all client connections
	for _, shard := range h.shards {
		shard.RLock()
		for _, members := range shard.rooms {
			for _, client := range members {
				client.Close()
			}
		}
		shard.RUnlock()
	}

	close(h.inbound)
	h.wg.Wait()
}
