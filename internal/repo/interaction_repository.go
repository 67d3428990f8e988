package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/model"
)

type interactionRepository struct {
	mongoRepo *db.Repository[model.Interaction]
	logger    *zap.Logger
}

// InteractionRepository owns the authoritative per-actor-per-post records.
// (kind, actor, post) is unique: the index backs up the pre-check so two
// racing likes from the same actor still produce exactly one record.
type InteractionRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, kind, actorID, postID string) (created bool, err error)
	Delete(ctx context.Context, kind, actorID, postID string) (found bool, err error)
	Exists(ctx context.Context, kind, actorID, postID string) (bool, error)
	CountByPost(ctx context.Context, kind, postID string) (int64, error)
}

func NewInteractionRepository(mongoRepo *db.Repository[model.Interaction], logger *zap.Logger) InteractionRepository {
	return &interactionRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

func (r *interactionRepository) EnsureIndexes(ctx context.Context) error {
	return r.mongoRepo.EnsureIndex(ctx,
		bson.D{{Key: "kind", Value: 1}, {Key: "actor_id", Value: 1}, {Key: "post_id", Value: 1}},
		options.Index().SetUnique(true),
	)
}

func (r *interactionRepository) Create(ctx context.Context, kind, actorID, postID string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	exists, err := r.Exists(ctx, kind, actorID, postID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = r.mongoRepo.Create(ctx, model.Interaction{
		Kind:      kind,
		ActorID:   actorID,
		PostID:    postID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost the race to a concurrent identical write; same outcome
			return false, nil
		}
		r.logger.Error("failed to insert interaction",
			zap.String("kind", kind),
			zap.String("post_id", postID),
			zap.Error(err),
		)
		return false, fmt.Errorf("%w: insert interaction: %v", errs.ErrPersistence, err)
	}
	return true, nil
}

func (r *interactionRepository) Delete(ctx context.Context, kind, actorID, postID string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.mongoRepo.Delete(ctx, r.filter(kind, actorID, postID))
	if err != nil {
		return false, fmt.Errorf("%w: delete interaction: %v", errs.ErrPersistence, err)
	}
	return res.DeletedCount > 0, nil
}

func (r *interactionRepository) Exists(ctx context.Context, kind, actorID, postID string) (bool, error) {
	exists, err := r.mongoRepo.Exists(ctx, r.filter(kind, actorID, postID))
	if err != nil {
		return false, fmt.Errorf("%w: interaction exists: %v", errs.ErrPersistence, err)
	}
	return exists, nil
}

func (r *interactionRepository) CountByPost(ctx context.Context, kind, postID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("kind", kind).Eq("post_id", postID).Build()
	count, err := r.mongoRepo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: count interactions: %v", errs.ErrPersistence, err)
	}
	return count, nil
}

func (r *interactionRepository) filter(kind, actorID, postID string) bson.M {
	return db.NewFilter().
		Eq("kind", kind).
		Eq("actor_id", actorID).
		Eq("post_id", postID).
		Build()
}
