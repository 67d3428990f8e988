package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/model"
)

var (
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
	ErrInvalidMessage     = errors.New("invalid message: message cannot be nil")
	ErrInvalidID          = errors.New("invalid id: cannot be empty")
	ErrOperationTimeout   = errors.New("operation timeout exceeded")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second

	messagesPageSize = 15
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *model.Message) (string, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	UpdateBody(ctx context.Context, id, body string, editedAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByConversation(ctx context.Context, conversationID string) error
	SetPinned(ctx context.Context, id string, pinned bool, by string, at time.Time) error
	AddReaction(ctx context.Context, id, emoji, userID string) error
	MarkRead(ctx context.Context, id, userID string) error
	SetStatus(ctx context.Context, id, from, to string) (bool, error)
	IncrementPollVote(ctx context.Context, id string, optionIndex int) error
	RevealScheduled(ctx context.Context, id string) (bool, error)
	ListPage(ctx context.Context, conversationID string, page int64, now time.Time) (*db.PaginatedResult[model.Message], error)
	DueScheduled(ctx context.Context, now time.Time) ([]model.Message, error)
	ExpiredEphemeral(ctx context.Context, now time.Time) ([]model.Message, error)
}

func NewMessageRepository(mongoRepo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

func (m *messageRepository) Insert(ctx context.Context, msg *model.Message) (string, error) {
	if msg == nil {
		return "", ErrInvalidMessage
	}
	if msg.ConversationID.IsZero() {
		return "", ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return "", err
			}
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			insertedID := ""
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				insertedID = oid.Hex()
				msg.ID = oid
			}

			m.logger.Debug("message inserted",
				zap.String("inserted_id", insertedID),
				zap.String("conversation_id", msg.ConversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return insertedID, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message",
		zap.Error(lastErr),
		zap.String("conversation_id", msg.ConversationID.Hex()),
	)

	return "", fmt.Errorf("%w: insert message: %v", errs.ErrPersistence, lastErr)
}

func (m *messageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, "message", id)
	}
	return msg, nil
}

func (m *messageRepository) UpdateBody(ctx context.Context, id, body string, editedAt time.Time) error {
	return m.updateExisting(ctx, id, bson.M{"$set": bson.M{"body": body, "edited_at": editedAt}})
}

func (m *messageRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := m.mongoRepo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: delete message: %v", errs.ErrPersistence, err)
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound.WithMsg("message %s not found", id)
	}
	return nil
}

func (m *messageRepository) DeleteByConversation(ctx context.Context, conversationID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("conversation_id", conversationID).Build()
	if _, err := m.mongoRepo.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("%w: delete conversation messages: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (m *messageRepository) SetPinned(ctx context.Context, id string, pinned bool, by string, at time.Time) error {
	return m.updateExisting(ctx, id, bson.M{"$set": bson.M{
		"pinned":    pinned,
		"pinned_by": by,
		"pinned_at": at,
	}})
}

func (m *messageRepository) AddReaction(ctx context.Context, id, emoji, userID string) error {
	// $push, not $addToSet: one actor may react with several distinct emoji
	// and reactions form a multiset.
	return m.updateExisting(ctx, id, bson.M{"$push": bson.M{
		"reactions": model.Reaction{Emoji: emoji, UserID: userID},
	}})
}

func (m *messageRepository) MarkRead(ctx context.Context, id, userID string) error {
	return m.updateExisting(ctx, id, bson.M{
		"$addToSet": bson.M{"read_by": userID},
		"$set":      bson.M{"status": model.StatusRead},
	})
}

// SetStatus moves status from one value to another. The filter carries the
// expected current status, so a racing transition loses cleanly: the update
// matches nothing and false comes back.
func (m *messageRepository) SetStatus(ctx context.Context, id, from, to string) (bool, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return false, errs.ErrNotFound.WithMsg("message %s not found", id)
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("_id", id).Eq("status", from).Build()
	res, err := m.mongoRepo.Update(ctx, filter, bson.M{"status": to})
	if err != nil {
		return false, fmt.Errorf("%w: set message status: %v", errs.ErrPersistence, err)
	}
	return res.ModifiedCount > 0, nil
}

func (m *messageRepository) IncrementPollVote(ctx context.Context, id string, optionIndex int) error {
	field := fmt.Sprintf("poll.votes.%d", optionIndex)
	return m.updateExisting(ctx, id, bson.M{"$inc": bson.M{field: 1}})
}

// RevealScheduled flips a gated message to sent. Both the in-process timer
// and the reconciliation sweep issue this, possibly from several instances,
// so the update only matches while the message is still scheduled; whichever
// caller sees true owns the broadcast, every other caller sees false. A
// message already read meanwhile is left alone.
func (m *messageRepository) RevealScheduled(ctx context.Context, id string) (bool, error) {
	return m.SetStatus(ctx, id, model.StatusScheduled, model.StatusSent)
}

func (m *messageRepository) ListPage(ctx context.Context, conversationID string, page int64, now time.Time) (*db.PaginatedResult[model.Message], error) {
	if conversationID == "" {
		return nil, ErrInvalidID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	// Scheduled messages stay invisible until revealed; ephemeral messages
	// past their expiry are treated as deleted even before the purge runs.
	filter := db.NewFilter().
		ObjectID("conversation_id", conversationID).
		Ne("status", model.StatusScheduled).
		Build()
	filter["$or"] = bson.A{
		bson.M{"ephemeral_expires_at": bson.M{"$exists": false}},
		bson.M{"ephemeral_expires_at": bson.M{"$gt": now}},
	}

	result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
		Page:     page,
		PageSize: messagesPageSize,
		SortBy:   "created_at",
		SortDesc: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: filter messages: %v", errs.ErrPersistence, err)
	}
	return result, nil
}

func (m *messageRepository) DueScheduled(ctx context.Context, now time.Time) ([]model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("status", model.StatusScheduled).
		Lte("scheduled_at", now).
		Build()
	msgs, err := m.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: due scheduled: %v", errs.ErrPersistence, err)
	}
	return msgs, nil
}

func (m *messageRepository) ExpiredEphemeral(ctx context.Context, now time.Time) ([]model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Lte("ephemeral_expires_at", now).Build()
	msgs, err := m.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: expired ephemeral: %v", errs.ErrPersistence, err)
	}
	return msgs, nil
}

// updateExisting applies an operator update and reports NotFound when the
// target id does not resolve.
func (m *messageRepository) updateExisting(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := m.mongoRepo.UpdateRawByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("%w: update message: %v", errs.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WithMsg("message %s not found", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Shared helpers
// -----------------------------------------------------------------------------

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}

	return false
}

func objectIDHex(v interface{}) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return ""
}

func mapFindErr(err error, entity, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
		return errs.ErrNotFound.WithMsg("%s %s not found", entity, id)
	}
	return fmt.Errorf("%w: fetch %s: %v", errs.ErrPersistence, entity, err)
}
