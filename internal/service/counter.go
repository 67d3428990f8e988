package service

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/event"
	"github.com/OxyHQ/mention-api/internal/model"
	"github.com/OxyHQ/mention-api/internal/repo"
)

const counterLockShards = 64

// CounterService keeps post counters consistent with the interaction
// records they are derived from. Counters are never incremented in place:
// every mutation recomputes from the records, so a drifted snapshot heals on
// the next interaction. Recomputes for one post are serialized through a
// sharded lock.
type CounterService struct {
	interactions repo.InteractionRepository
	posts        repo.PostRepository
	notifier     *NotificationService
	broadcaster  Broadcaster
	logger       *zap.Logger

	locks [counterLockShards]sync.Mutex
}

func NewCounterService(
	interactions repo.InteractionRepository,
	posts repo.PostRepository,
	notifier *NotificationService,
	broadcaster Broadcaster,
	logger *zap.Logger,
) *CounterService {
	return &CounterService{
		interactions: interactions,
		posts:        posts,
		notifier:     notifier,
		broadcaster:  broadcaster,
		logger:       logger,
	}
}

func (s *CounterService) lockFor(postID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(postID))
	return &s.locks[h.Sum32()%counterLockShards]
}

// Like records the actor's like, recomputes the counters and broadcasts the
// snapshot to the post room. A repeated like from the same actor is
// idempotent: no new record, but the fresh snapshot still goes out. The
// post author is notified on the first like only.
func (s *CounterService) Like(ctx context.Context, actorID, postID string) (*event.PostCountersPayload, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(postID)
	mu.Lock()
	defer mu.Unlock()

	created, err := s.interactions.Create(ctx, model.InteractionLike, actorID, postID)
	if err != nil {
		return nil, err
	}

	payload, err := s.recompute(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(event.PostRoom(postID), event.EventPostLiked, payload)

	if created {
		if _, nerr := s.notifier.Notify(ctx, post.UserID, actorID, model.NotificationLike, postID, model.EntityPost); nerr != nil {
			s.logger.Warn("like notification failed",
				zap.String("post_id", postID),
				zap.Error(nerr),
			)
		}
	}
	return payload, nil
}

// Unlike removes the actor's like. Unliking a post the actor never liked
// still recomputes and broadcasts, then reports NotFound so the caller can
// surface it; the counters in the payload are correct either way.
func (s *CounterService) Unlike(ctx context.Context, actorID, postID string) (*event.PostCountersPayload, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	mu := s.lockFor(postID)
	mu.Lock()
	defer mu.Unlock()

	found, err := s.interactions.Delete(ctx, model.InteractionLike, actorID, postID)
	if err != nil {
		return nil, err
	}

	payload, err := s.recompute(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(event.PostRoom(postID), event.EventPostUnliked, payload)

	if !found {
		return payload, errs.ErrNotFound.WithMsg("like not found")
	}
	return payload, nil
}

// Bookmark mirrors Like without the notification.
func (s *CounterService) Bookmark(ctx context.Context, actorID, postID string) (*event.PostCountersPayload, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	mu := s.lockFor(postID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.interactions.Create(ctx, model.InteractionBookmark, actorID, postID); err != nil {
		return nil, err
	}

	payload, err := s.recompute(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(event.PostRoom(postID), event.EventPostBookmarked, payload)
	return payload, nil
}

// Unbookmark mirrors Unlike.
func (s *CounterService) Unbookmark(ctx context.Context, actorID, postID string) (*event.PostCountersPayload, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	mu := s.lockFor(postID)
	mu.Lock()
	defer mu.Unlock()

	found, err := s.interactions.Delete(ctx, model.InteractionBookmark, actorID, postID)
	if err != nil {
		return nil, err
	}

	payload, err := s.recompute(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(event.PostRoom(postID), event.EventPostUnbookmarked, payload)

	if !found {
		return payload, errs.ErrNotFound.WithMsg("bookmark not found")
	}
	return payload, nil
}

// Status reports whether the actor has liked and bookmarked the post,
// alongside the current counters. Read-only: no lock, no snapshot write.
func (s *CounterService) Status(ctx context.Context, actorID, postID string) (*event.PostCountersPayload, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	counts, err := s.countAll(ctx, postID)
	if err != nil {
		return nil, err
	}

	liked, err := s.interactions.Exists(ctx, model.InteractionLike, actorID, postID)
	if err != nil {
		return nil, err
	}
	bookmarked, err := s.interactions.Exists(ctx, model.InteractionBookmark, actorID, postID)
	if err != nil {
		return nil, err
	}

	return &event.PostCountersPayload{
		PostID:       postID,
		UserID:       actorID,
		IsLiked:      &liked,
		IsBookmarked: &bookmarked,
		Counts:       *counts,
	}, nil
}

// recompute derives all counters from records, persists the snapshot onto
// the post and returns the payload with the actor's own flags resolved.
// Callers hold the post's lock.
func (s *CounterService) recompute(ctx context.Context, actorID, postID string) (*event.PostCountersPayload, error) {
	counts, err := s.countAll(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := s.posts.SetCounts(ctx, postID, *counts); err != nil {
		return nil, err
	}

	liked, err := s.interactions.Exists(ctx, model.InteractionLike, actorID, postID)
	if err != nil {
		return nil, err
	}
	bookmarked, err := s.interactions.Exists(ctx, model.InteractionBookmark, actorID, postID)
	if err != nil {
		return nil, err
	}

	return &event.PostCountersPayload{
		PostID:       postID,
		UserID:       actorID,
		IsLiked:      &liked,
		IsBookmarked: &bookmarked,
		Counts:       *counts,
	}, nil
}

func (s *CounterService) countAll(ctx context.Context, postID string) (*model.PostCounts, error) {
	likes, err := s.interactions.CountByPost(ctx, model.InteractionLike, postID)
	if err != nil {
		return nil, err
	}
	bookmarks, err := s.interactions.CountByPost(ctx, model.InteractionBookmark, postID)
	if err != nil {
		return nil, err
	}
	replies, err := s.posts.CountReplies(ctx, postID)
	if err != nil {
		return nil, err
	}
	reposts, err := s.posts.CountReposts(ctx, postID)
	if err != nil {
		return nil, err
	}
	quotes, err := s.posts.CountQuotes(ctx, postID)
	if err != nil {
		return nil, err
	}

	return &model.PostCounts{
		Likes:     likes,
		Bookmarks: bookmarks,
		Replies:   replies,
		Reposts:   reposts,
		Quotes:    quotes,
	}, nil
}
