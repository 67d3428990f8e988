package hub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/auth"
	"github.com/OxyHQ/mention-api/internal/event"
)

var gatewayAuthOpts = auth.Options{Secret: []byte("gateway-test-secret-32-bytes-min")}

func newGatewayServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	verifier, err := auth.NewVerifier(gatewayAuthOpts)
	if err != nil {
		t.Fatal(err)
	}

	h := NewHub()
	t.Cleanup(h.Stop)

	gw := NewGateway(h, verifier, nil, zap.NewNop())
	srv := httptest.NewServer(gw.Handler(NamespaceChat))
	t.Cleanup(srv.Close)

	return h, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGatewayRejectsMissingCredential(t *testing.T) {
	_, srv := newGatewayServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev event.WsEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("expected error frame, got read error: %v", err)
	}
	if ev.Event != event.EventError {
		t.Fatalf("got event %q, want %q", ev.Event, event.EventError)
	}
	if !strings.Contains(string(ev.Payload), "missing_credential") {
		t.Fatalf("error payload %s missing reason", ev.Payload)
	}

	// connection is closed after the error frame
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&ev); err == nil {
		t.Fatal("connection stayed open after rejection")
	}
}

func TestGatewayRejectsBadToken(t *testing.T) {
	_, srv := newGatewayServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=garbage", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev event.WsEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("expected error frame, got read error: %v", err)
	}
	if !strings.Contains(string(ev.Payload), "invalid_credential") {
		t.Fatalf("error payload %s missing reason", ev.Payload)
	}
}

func TestGatewayAdmitsValidTokenIntoUserRoom(t *testing.T) {
	h, srv := newGatewayServer(t)

	token, err := auth.Generate(gatewayAuthOpts, "alice", nil, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// registration is async through the hub's register channel
	room := event.UserRoom("alice")
	deadline := time.Now().Add(time.Second)
	for h.RoomSize(room) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := h.RoomSize(room); got != 1 {
		t.Fatalf("user room size %d, want 1", got)
	}

	// and the connection receives what lands in its user room
	h.Publish(room, "notification", map[string]string{"hello": "alice"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev event.WsEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ev.Event != "notification" {
		t.Fatalf("got event %q, want notification", ev.Event)
	}
}
