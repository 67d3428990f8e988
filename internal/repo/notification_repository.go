package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/model"
)

type notificationRepository struct {
	mongoRepo *db.Repository[model.Notification]
	logger    *zap.Logger
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) (string, error)
	MarkRead(ctx context.Context, id, recipientID string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id, recipientID string) error
	ListPaged(ctx context.Context, recipientID string, page, pageSize int64) (*db.PaginatedResult[model.Notification], error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
}

func NewNotificationRepository(mongoRepo *db.Repository[model.Notification], logger *zap.Logger) NotificationRepository {
	return &notificationRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

func (r *notificationRepository) Insert(ctx context.Context, n *model.Notification) (string, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.Create(ctx, *n)
	if err != nil {
		r.logger.Error("failed to insert notification",
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: insert notification: %v", errs.ErrPersistence, err)
	}
	return objectIDHex(result.InsertedID), nil
}

// MarkRead flips read=true on a notification owned by recipientID and returns
// the updated document. Ownership is part of the filter: another recipient's
// notification reads as not found.
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) (*model.Notification, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("_id", id).
		Eq("recipient_id", recipientID).
		Build()
	res, err := r.mongoRepo.Update(ctx, filter, bson.M{"read": true})
	if err != nil {
		return nil, fmt.Errorf("%w: mark notification read: %v", errs.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return nil, errs.ErrNotFound.WithMsg("notification %s not found", id)
	}

	n, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		return nil, mapFindErr(err, "notification", id)
	}
	return n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("recipient_id", recipientID).Eq("read", false).Build()
	res, err := r.mongoRepo.UpdateMany(ctx, filter, bson.M{"read": true})
	if err != nil {
		return 0, fmt.Errorf("%w: mark all read: %v", errs.ErrPersistence, err)
	}
	return res.ModifiedCount, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, recipientID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("_id", id).
		Eq("recipient_id", recipientID).
		Build()
	res, err := r.mongoRepo.Delete(ctx, filter)
	if err != nil {
		return fmt.Errorf("%w: delete notification: %v", errs.ErrPersistence, err)
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound.WithMsg("notification %s not found", id)
	}
	return nil
}

func (r *notificationRepository) ListPaged(ctx context.Context, recipientID string, page, pageSize int64) (*db.PaginatedResult[model.Notification], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("recipient_id", recipientID).Build()
	result, err := r.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
		Page:     page,
		PageSize: pageSize,
		SortBy:   "created_at",
		SortDesc: true, // newest first
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list notifications: %v", errs.ErrPersistence, err)
	}
	return result, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("recipient_id", recipientID).Eq("read", false).Build()
	count, err := r.mongoRepo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: unread count: %v", errs.ErrPersistence, err)
	}
	return count, nil
}
