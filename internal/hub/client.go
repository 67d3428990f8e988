package hub

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/OxyHQ/mention-api/internal/event"
)

var (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	sendBufSize        = 256                    // per-connection outbound buffer size
	workerPoolSize     = 16                     // number of workers to process inbound messages
	sendTimeout        = 2 * time.Second        // timeout for enqueuing outbound messages
	kickOnFull         = true                   // when true, disconnect client when egress is full
	registerTimeout    = 5 * time.Second        // timeout for client registration
	unregisterTimeout  = 5 * time.Second        // timeout for client unregistration
	inboundSendTimeout = 500 * time.Millisecond // timeout for sending to inbound channel
)

// Client binds one live websocket connection to a verified identity and the
// set of rooms it has joined. Bindings are ephemeral: nothing here persists,
// everything is torn down on disconnect.
type Client struct {
	ID        string
	userID    string
	namespace string
	conn      *websocket.Conn
	hub       *Hub
	egress    chan event.WsEvent

	rooms   map[string]struct{}
	roomsMu sync.RWMutex

	// cancel or stop goroutine
	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool
	closedMu       sync.RWMutex
}

// RegisterClient creates a client for an already-verified identity and joins
// it to the identity's private room so it is reachable for out-of-band
// notifications regardless of the namespace it connected through.
func RegisterClient(userID, namespace string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	clientID := uuid.New().String()

	client := &Client{
		ID:             clientID,
		userID:         userID,
		namespace:      namespace,
		conn:           conn,
		hub:            h,
		egress:         make(chan event.WsEvent, sendBufSize),
		rooms:          map[string]struct{}{event.UserRoom(userID): {}},
		cancel:         cancel,
		ctx:            ctx,
		connClosed:     make(chan struct{}),
		connClosedOnce: sync.Once{},
	}

	select {
	case h.register <- client:
		go client.ReadMessages()
		go client.WriteMessages()
		return client
	case <-time.After(registerTimeout):
		log.Printf("failed to register client %s: timeout", clientID)
		cancel()
		conn.Close()
		return nil
	}
}

// UserID returns the verified identity bound to this connection.
func (c *Client) UserID() string {
	return c.userID
}

// InRoom reports whether the connection is subscribed to room.
func (c *Client) InRoom(room string) bool {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

func (c *Client) addRoom(room string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	c.rooms[room] = struct{}{}
}

func (c *Client) removeRoom(room string) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	delete(c.rooms, room)
}

func (c *Client) roomSnapshot() []string {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	out := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		out = append(out, r)
	}
	return out
}

func (c *Client) ReadMessages() {
	defer func() {
		select {
		case c.hub.unregister <- c:
			// unregistered successfully
		case <-time.After(unregisterTimeout):
			log.Printf("failed to unregister client %s: timeout", c.ID)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent

			if err := c.conn.ReadJSON(&ev); err != nil {

				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					log.Printf("client disconnected: %v", c.ID)
					return
				}

				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseInternalServerErr,
					websocket.CloseProtocolError,
				) {
					log.Printf("unexpected close for %s: %v", c.ID, err)
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					log.Printf("client %s timed out - closing connection", c.ID)
					return
				}

				log.Printf("error reading from client %s: %v", c.ID, err)
				return
			}

			// Non-blocking send into inbound processing queue to avoid blocking reader
			select {
			case c.hub.inbound <- inboundMessage{client: c, event: ev}:
				// accepted for processing
			case <-time.After(inboundSendTimeout):
				log.Printf("inbound send timeout: dropping client %s", c.ID)
				c.cancel()
				c.conn.Close()
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			if err := c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Printf("connection closed: %v", err)
			}
			return
		case ev := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Printf("write error for client %s: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Printf("ping error for client %s: %v", c.ID, err)
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues an event to this connection only.
func (c *Client) Send(ev event.WsEvent) {
	select {
	case c.egress <- ev:
		// message sent
	case <-time.After(sendTimeout):
		log.Printf("egress full, disconnecting client %s", c.ID)
		select {
		case c.hub.unregister <- c:
			// unregistered
		case <-time.After(unregisterTimeout):
			log.Printf("failed to unregister client %s: timeout", c.ID)
		}
	case <-c.ctx.Done():
		// client already closed
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		// The context stops both pumps. egress stays open: the hub may
		// still hold this client in its room maps until the unregister is
		// processed, and a concurrent publish must never hit a closed
		// channel.
		c.cancel()

		// Wait for WriteMessages to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
				// WriteMessages closed it properly
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
				log.Printf("safety timeout: force closed connection for client %s", c.ID)
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}
