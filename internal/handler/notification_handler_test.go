package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/auth"
	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/model"
	"github.com/OxyHQ/mention-api/internal/service"
)

type memNotificationRepo struct {
	mu            sync.Mutex
	notifications map[string]*model.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{notifications: make(map[string]*model.Notification)}
}

func (r *memNotificationRepo) Insert(ctx context.Context, n *model.Notification) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	cp := *n
	cp.ID = id
	r.notifications[id.Hex()] = &cp
	return id.Hex(), nil
}

func (r *memNotificationRepo) MarkRead(ctx context.Context, id, recipientID string) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, errs.ErrNotFound
	}
	n.Read = true
	cp := *n
	return &cp, nil
}

func (r *memNotificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) Delete(ctx context.Context, id, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return errs.ErrNotFound
	}
	delete(r.notifications, id)
	return nil
}

func (r *memNotificationRepo) ListPaged(ctx context.Context, recipientID string, page, pageSize int64) (*db.PaginatedResult[model.Notification], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []model.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			items = append(items, *n)
		}
	}
	return &db.PaginatedResult[model.Notification]{
		Data:       items,
		Total:      int64(len(items)),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: 1,
	}, nil
}

func (r *memNotificationRepo) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

type capturingBroadcaster struct {
	mu    sync.Mutex
	rooms []string
}

func (b *capturingBroadcaster) Publish(room, name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, room)
}

func (b *capturingBroadcaster) PublishExcept(room, name string, payload any, exceptConnID string) {
	b.Publish(room, name, payload)
}

var testAuthOptions = auth.Options{Secret: []byte("test-secret"), Alg: "HS256"}

func newNotificationRouter(t *testing.T) (*gin.Engine, *memNotificationRepo, *capturingBroadcaster) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemNotificationRepo()
	broadcaster := &capturingBroadcaster{}
	h := NewNotificationHandler(service.NewNotificationService(repo, broadcaster, zap.NewNop()))

	verifier, err := auth.NewVerifier(testAuthOptions)
	require.NoError(t, err)

	router := gin.New()
	group := router.Group("/api/notifications")
	group.Use(RequireAuth(verifier))
	group.POST("", h.CreateNotification)
	return router, repo, broadcaster
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.Generate(testAuthOptions, userID, nil, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func postNotification(t *testing.T, router *gin.Engine, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, actor))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateNotificationPersistsAndFansOut(t *testing.T) {
	router, repo, broadcaster := newNotificationRouter(t)

	rec := postNotification(t, router, "alice", gin.H{
		"recipientId": "bob",
		"type":        model.NotificationMention,
		"entityId":    "post-1",
		"entityType":  model.EntityPost,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "bob", created.RecipientID)
	assert.Equal(t, "alice", created.ActorID)
	assert.Equal(t, model.NotificationMention, created.Type)

	unread, err := repo.UnreadCount(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.Len(t, broadcaster.rooms, 1)
	assert.Equal(t, "user:bob", broadcaster.rooms[0])
}

func TestCreateNotificationRejectsUnknownType(t *testing.T) {
	router, repo, _ := newNotificationRouter(t)

	rec := postNotification(t, router, "alice", gin.H{
		"recipientId": "bob",
		"type":        "poke",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	unread, err := repo.UnreadCount(context.Background(), "bob")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestCreateNotificationSkipsSelf(t *testing.T) {
	router, repo, broadcaster := newNotificationRouter(t)

	rec := postNotification(t, router, "alice", gin.H{
		"recipientId": "alice",
		"type":        model.NotificationFollow,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skipped")

	unread, err := repo.UnreadCount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Zero(t, unread)
	assert.Empty(t, broadcaster.rooms)
}

func TestCreateNotificationRequiresAuth(t *testing.T) {
	router, _, _ := newNotificationRouter(t)

	raw, err := json.Marshal(gin.H{"recipientId": "bob", "type": model.NotificationFollow})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/notifications", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
