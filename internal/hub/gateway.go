package hub

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/auth"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/event"
	"github.com/OxyHQ/mention-api/internal/model"
)

// Real-time namespaces. Each is an independently gated partition of traffic:
// a connection authenticated for one is not implicitly authenticated for
// another, so the verifier runs per namespace.
const (
	NamespaceGeneral       = "general"
	NamespaceChat          = "chat"
	NamespaceNotifications = "notifications"
	NamespaceInteractions  = "interactions"
	NamespacePrivacy       = "privacy"
)

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	switch origin {
	case "", "http://localhost:8081", "https://mention.earth":
		return true
	default:
		return false
	}
}

// Gateway admits live connections. It sits in front of every namespace:
// extract credential, verify, bind connection to identity, auto-join the
// identity's user room. Unauthenticated connections are closed with a typed
// reason before any room is joined.
type Gateway struct {
	hub      *Hub
	verifier auth.Verifier
	presence *Backplane // optional, for cross-instance presence
	logger   *zap.Logger
}

func NewGateway(h *Hub, verifier auth.Verifier, presence *Backplane, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:      h,
		verifier: verifier,
		presence: presence,
		logger:   logger,
	}
}

// Handler returns the websocket endpoint for one namespace.
func (g *Gateway) Handler(namespace string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			g.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		identity, verr := g.verifier.Verify(credentialFrom(r))
		if verr != nil {
			g.reject(conn, verr, namespace)
			return
		}

		client := RegisterClient(identity.UserID, namespace, conn, g.hub)
		if client == nil {
			return
		}

		if g.presence != nil {
			if err := g.presence.PresenceOnline(r.Context(), identity.UserID); err != nil {
				g.logger.Warn("presence update failed",
					zap.String("user_id", identity.UserID),
					zap.Error(err),
				)
			}
		}

		g.logger.Debug("connection admitted",
			zap.String("user_id", identity.UserID),
			zap.String("namespace", namespace),
			zap.String("conn_id", client.ID),
		)
	}
}

// reject sends a typed error frame and close reason, then drops the
// connection. No room is ever joined on this path.
func (g *Gateway) reject(conn *websocket.Conn, verr error, namespace string) {
	reason := errs.Reason(verr)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(event.New(event.EventError, model.ErrorPayload{
		Code:    reason,
		Message: verr.Error(),
	}))
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(writeWait),
	)
	conn.Close()

	g.logger.Info("connection rejected",
		zap.String("namespace", namespace),
		zap.String("reason", reason),
	)
}

// credentialFrom pulls the bearer token from the handshake: auth query
// parameter first, Authorization header as fallback.
func credentialFrom(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
