package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/event"
	"github.com/OxyHQ/mention-api/internal/model"
)

type counterFixture struct {
	counters     *CounterService
	interactions *fakeInteractionRepo
	posts        *fakePostRepo
	notifs       *fakeNotificationRepo
	broadcaster  *recordingBroadcaster
}

func newCounterFixture(t *testing.T) *counterFixture {
	t.Helper()
	logger := zap.NewNop()

	interactions := newFakeInteractionRepo()
	posts := newFakePostRepo()
	notifs := newFakeNotificationRepo()
	broadcaster := &recordingBroadcaster{}

	notifier := NewNotificationService(notifs, broadcaster, logger)
	counters := NewCounterService(interactions, posts, notifier, broadcaster, logger)

	return &counterFixture{
		counters:     counters,
		interactions: interactions,
		posts:        posts,
		notifs:       notifs,
		broadcaster:  broadcaster,
	}
}

func TestLikeDerivesCountFromRecords(t *testing.T) {
	f := newCounterFixture(t)
	postID := f.posts.add("author")

	payload, err := f.counters.Like(context.Background(), "alice", postID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), payload.Counts.Likes)
	require.NotNil(t, payload.IsLiked)
	assert.True(t, *payload.IsLiked)

	// snapshot persisted on the post
	post, err := f.posts.GetByID(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.Counts.Likes)

	// record count stays authoritative under a second actor
	_, err = f.counters.Like(context.Background(), "bob", postID)
	require.NoError(t, err)
	post, err = f.posts.GetByID(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), post.Counts.Likes)
}

func TestDoubleLikeIsIdempotent(t *testing.T) {
	f := newCounterFixture(t)
	postID := f.posts.add("author")

	_, err := f.counters.Like(context.Background(), "alice", postID)
	require.NoError(t, err)
	payload, err := f.counters.Like(context.Background(), "alice", postID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), payload.Counts.Likes)

	// both calls broadcast the (correct) snapshot
	assert.Len(t, f.broadcaster.named(event.EventPostLiked), 2)

	// only the first like notifies the author
	count, err := f.notifs.UnreadCount(context.Background(), "author")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLikeHealsDriftedSnapshot(t *testing.T) {
	f := newCounterFixture(t)
	postID := f.posts.add("author")

	// snapshot drifted away from the records
	require.NoError(t, f.posts.SetCounts(context.Background(), postID, model.PostCounts{Likes: 42}))

	payload, err := f.counters.Like(context.Background(), "alice", postID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), payload.Counts.Likes)

	post, err := f.posts.GetByID(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.Counts.Likes)
}

func TestUnlikeAbsentReportsNotFoundWithCounts(t *testing.T) {
	f := newCounterFixture(t)
	postID := f.posts.add("author")

	payload, err := f.counters.Unlike(context.Background(), "alice", postID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	require.NotNil(t, payload)
	assert.Equal(t, int64(0), payload.Counts.Likes)

	// the corrective snapshot still went to the post room
	assert.Len(t, f.broadcaster.named(event.EventPostUnliked), 1)
}

func TestUnlikeRemovesRecord(t *testing.T) {
	f := newCounterFixture(t)
	postID := f.posts.add("author")

	_, err := f.counters.Like(context.Background(), "alice", postID)
	require.NoError(t, err)

	payload, err := f.counters.Unlike(context.Background(), "alice", postID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), payload.Counts.Likes)
	require.NotNil(t, payload.IsLiked)
	assert.False(t, *payload.IsLiked)
}

func TestBookmarkDoesNotNotify(t *testing.T) {
	f := newCounterFixture(t)
	postID := f.posts.add("author")

	payload, err := f.counters.Bookmark(context.Background(), "alice", postID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), payload.Counts.Bookmarks)

	count, err := f.notifs.UnreadCount(context.Background(), "author")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	evs := f.broadcaster.named(event.EventPostBookmarked)
	require.Len(t, evs, 1)
	assert.Equal(t, event.PostRoom(postID), evs[0].Room)
}

func TestLikeUnknownPostFails(t *testing.T) {
	f := newCounterFixture(t)

	_, err := f.counters.Like(context.Background(), "alice", "0123456789abcdef01234567")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStatusReflectsBothFlags(t *testing.T) {
	f := newCounterFixture(t)
	postID := f.posts.add("author")

	_, err := f.counters.Like(context.Background(), "alice", postID)
	require.NoError(t, err)
	_, err = f.counters.Bookmark(context.Background(), "bob", postID)
	require.NoError(t, err)

	st, err := f.counters.Status(context.Background(), "alice", postID)
	require.NoError(t, err)
	assert.True(t, *st.IsLiked)
	assert.False(t, *st.IsBookmarked)
	assert.Equal(t, int64(1), st.Counts.Likes)
	assert.Equal(t, int64(1), st.Counts.Bookmarks)
}

func TestConcurrentLikesStayExact(t *testing.T) {
	f := newCounterFixture(t)
	postID := f.posts.add("author")

	const actors = 32
	var wg sync.WaitGroup
	for i := 0; i < actors; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			actor := string(rune('a' + n%26))
			if n >= 26 {
				actor += "x"
			}
			_, _ = f.counters.Like(context.Background(), actor, postID)
		}(i)
	}
	wg.Wait()

	post, err := f.posts.GetByID(context.Background(), postID)
	require.NoError(t, err)

	want, err := f.interactions.CountByPost(context.Background(), model.InteractionLike, postID)
	require.NoError(t, err)
	assert.Equal(t, want, post.Counts.Likes)
}
