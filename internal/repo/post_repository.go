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

type postRepository struct {
	mongoRepo *db.Repository[model.Post]
	logger    *zap.Logger
}

// PostRepository reads post documents owned by the main API and writes only
// the derived counter snapshot back. Reply/repost/quote counts come from
// post linkage fields rather than interaction records.
type PostRepository interface {
	GetByID(ctx context.Context, id string) (*model.Post, error)
	SetCounts(ctx context.Context, id string, counts model.PostCounts) error
	CountReplies(ctx context.Context, id string) (int64, error)
	CountReposts(ctx context.Context, id string) (int64, error)
	CountQuotes(ctx context.Context, id string) (int64, error)
}

func NewPostRepository(mongoRepo *db.Repository[model.Post], logger *zap.Logger) PostRepository {
	return &postRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	post, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindErr(err, "post", id)
	}
	return post, nil
}

func (r *postRepository) SetCounts(ctx context.Context, id string, counts model.PostCounts) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.mongoRepo.UpdateByID(ctx, id, bson.M{"_count": counts})
	if err != nil {
		r.logger.Error("failed to persist counter snapshot",
			zap.String("post_id", id),
			zap.Error(err),
		)
		return fmt.Errorf("%w: set counts: %v", errs.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WithMsg("post %s not found", id)
	}
	return nil
}

func (r *postRepository) CountReplies(ctx context.Context, id string) (int64, error) {
	return r.countLinked(ctx, "in_reply_to_status_id", id)
}

func (r *postRepository) CountReposts(ctx context.Context, id string) (int64, error) {
	return r.countLinked(ctx, "repost_of", id)
}

func (r *postRepository) CountQuotes(ctx context.Context, id string) (int64, error) {
	return r.countLinked(ctx, "quoted_status_id", id)
}

func (r *postRepository) countLinked(ctx context.Context, field, id string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID(field, id).Build()
	count, err := r.mongoRepo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", errs.ErrPersistence, field, err)
	}
	return count, nil
}
