package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/event"
	"github.com/OxyHQ/mention-api/internal/model"
	"github.com/OxyHQ/mention-api/internal/repo"
)

// NotificationPage is one page of a recipient's notifications plus the
// total unread count.
type NotificationPage struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int64                `json:"unreadCount"`
	HasMore       bool                 `json:"hasMore"`
}

// NotificationService creates, persists and delivers notification events and
// tracks their read state. Persistence always precedes the user-room publish.
type NotificationService struct {
	notifications repo.NotificationRepository
	broadcaster   Broadcaster
	logger        *zap.Logger
	now           func() time.Time
}

func NewNotificationService(notifications repo.NotificationRepository, broadcaster Broadcaster, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		broadcaster:   broadcaster,
		logger:        logger,
		now:           time.Now,
	}
}

// Notify persists and delivers one notification. Self-triggered events are
// skipped for every type except welcome; the skip is a no-op, not an error.
func (s *NotificationService) Notify(ctx context.Context, recipientID, actorID, typ, entityID, entityType string) (*model.Notification, error) {
	if recipientID == actorID && typ != model.NotificationWelcome {
		return nil, nil
	}

	n := &model.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        typ,
		EntityID:    entityID,
		EntityType:  entityType,
		Read:        false,
		CreatedAt:   s.now(),
	}

	id, err := s.notifications.Insert(ctx, n)
	if err != nil {
		return nil, err
	}
	if oid, perr := oidFromHex(id); perr == nil {
		n.ID = oid
	}

	s.broadcaster.Publish(event.UserRoom(recipientID), event.EventNotification, n)

	s.logger.Debug("notification dispatched",
		zap.String("recipient_id", recipientID),
		zap.String("type", typ),
	)
	return n, nil
}

// MarkRead flips a single notification to read and publishes the update.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) (*model.Notification, error) {
	n, err := s.notifications.MarkRead(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(event.UserRoom(recipientID), event.EventNotificationUpdated, n)
	return n, nil
}

// MarkAllRead bulk-flips the recipient's unread notifications and publishes
// one aggregate event rather than one per notification.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	modified, err := s.notifications.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}

	s.broadcaster.Publish(event.UserRoom(recipientID), event.EventAllNotificationsRead, map[string]int64{
		"count": modified,
	})
	return modified, nil
}

// Delete removes a recipient-owned notification and publishes the deletion.
func (s *NotificationService) Delete(ctx context.Context, id, recipientID string) error {
	if err := s.notifications.Delete(ctx, id, recipientID); err != nil {
		return err
	}

	s.broadcaster.Publish(event.UserRoom(recipientID), event.EventNotificationDeleted, map[string]string{
		"notificationId": id,
	})
	return nil
}

// ListPaged returns one page, newest first, with the unread count.
func (s *NotificationService) ListPaged(ctx context.Context, recipientID string, page, pageSize int64) (*NotificationPage, error) {
	result, err := s.notifications.ListPaged(ctx, recipientID, page, pageSize)
	if err != nil {
		return nil, err
	}

	unread, err := s.notifications.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return &NotificationPage{
		Notifications: result.Data,
		UnreadCount:   unread,
		HasMore:       result.Page < result.TotalPages,
	}, nil
}
