package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/model"
)

type conversationRepository struct {
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

type ConversationRepository interface {
	Insert(ctx context.Context, conv *model.Conversation) (string, error)
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	ExpiredSecrets(ctx context.Context, now time.Time) ([]model.Conversation, error)
}

func NewConversationRepository(mongoRepo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

func (r *conversationRepository) Insert(ctx context.Context, conv *model.Conversation) (string, error) {
	if conv == nil || len(conv.Participants) == 0 {
		return "", ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.Create(ctx, *conv)
	if err != nil {
		r.logger.Error("failed to insert conversation", zap.Error(err))
		return "", fmt.Errorf("%w: insert conversation: %v", errs.ErrPersistence, err)
	}

	id := objectIDHex(result.InsertedID)
	r.logger.Debug("conversation created",
		zap.String("conversation_id", id),
		zap.String("type", conv.Type),
		zap.Int("participants_count", len(conv.Participants)),
	)
	return id, nil
}

// GetByID fetches a conversation by id. A secret conversation whose TTL has
// elapsed is reported as not found even before the sweep deletes it.
func (r *conversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conv, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, "conversation", id)
	}
	if conv.Expired(time.Now()) {
		return nil, errs.ErrNotFound.WithMsg("conversation %s not found", id)
	}
	return conv, nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("participants", userID).Eq("is_active", true).Build()
	convs, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		r.logger.Error("failed to list conversations", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: list conversations: %v", errs.ErrPersistence, err)
	}

	now := time.Now()
	out := convs[:0]
	for _, c := range convs {
		if !c.Expired(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.mongoRepo.UpdateByID(ctx, id, bson.M{"last_message_at": at, "updated_at": at})
	if err != nil {
		return fmt.Errorf("%w: touch conversation: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.mongoRepo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: delete conversation: %v", errs.ErrPersistence, err)
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound.WithMsg("conversation %s not found", id)
	}
	return nil
}

func (r *conversationRepository) ExpiredSecrets(ctx context.Context, now time.Time) ([]model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("type", model.ConversationSecret).
		Lte("expires_at", now).
		Build()
	convs, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: expired secrets: %v", errs.ErrPersistence, err)
	}
	return convs, nil
}
