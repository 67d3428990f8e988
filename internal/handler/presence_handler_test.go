package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OxyHQ/mention-api/internal/auth"
	"github.com/OxyHQ/mention-api/internal/event"
)

type fixedRoomSizer struct {
	sizes map[string]int
}

func (f *fixedRoomSizer) RoomSize(room string) int { return f.sizes[room] }

type fixedPresenceSource struct {
	online bool
	err    error
}

func (f *fixedPresenceSource) PresenceLookup(ctx context.Context, userID string) (string, bool, error) {
	return "instance-1", f.online, f.err
}

func newPresenceRouter(t *testing.T, rooms RoomSizer, presence PresenceSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := auth.NewVerifier(testAuthOptions)
	require.NoError(t, err)

	router := gin.New()
	group := router.Group("/api/users")
	group.Use(RequireAuth(verifier))
	group.GET("/:userId/presence", NewPresenceHandler(rooms, presence).GetPresence)
	return router
}

func getPresence(t *testing.T, router *gin.Engine, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/users/"+userID+"/presence", nil)
	req.Header.Set("Authorization", bearerToken(t, "alice"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPresencePrefersSharedSource(t *testing.T) {
	local := &fixedRoomSizer{sizes: map[string]int{}}
	router := newPresenceRouter(t, local, &fixedPresenceSource{online: true})

	rec := getPresence(t, router, "bob")
	require.Equal(t, http.StatusOK, rec.Code)
	// bob has no local connection but is online on another instance
	assert.Contains(t, rec.Body.String(), `"online":true`)
}

func TestPresenceFallsBackToLocalHub(t *testing.T) {
	local := &fixedRoomSizer{sizes: map[string]int{event.UserRoom("bob"): 2}}

	// no shared source at all
	router := newPresenceRouter(t, local, nil)
	rec := getPresence(t, router, "bob")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"online":true`)

	// shared source failing
	router = newPresenceRouter(t, local, &fixedPresenceSource{err: errors.New("redis down")})
	rec = getPresence(t, router, "bob")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"online":true`)

	rec = getPresence(t, router, "carol")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"online":false`)
}
