package service

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/model"
)

// recordingBroadcaster captures every publish for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Room    string
	Name    string
	Payload any
}

func (b *recordingBroadcaster) Publish(room, name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Room: room, Name: name, Payload: payload})
}

func (b *recordingBroadcaster) PublishExcept(room, name string, payload any, exceptConnID string) {
	b.Publish(room, name, payload)
}

func (b *recordingBroadcaster) recorded() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedEvent, len(b.events))
	copy(out, b.events)
	return out
}

func (b *recordingBroadcaster) named(name string) []recordedEvent {
	var out []recordedEvent
	for _, ev := range b.recorded() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// waitForEvent polls until an event with the given name shows up, for
// asserting on scheduler-driven broadcasts.
func (b *recordingBroadcaster) waitForEvent(name string, timeout time.Duration) (recordedEvent, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if evs := b.named(name); len(evs) > 0 {
			return evs[0], true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return recordedEvent{}, false
}

type fakeConversationRepo struct {
	mu    sync.Mutex
	convs map[string]*model.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{convs: make(map[string]*model.Conversation)}
}

func (f *fakeConversationRepo) Insert(ctx context.Context, conv *model.Conversation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := primitive.NewObjectID()
	cp := *conv
	cp.ID = id
	f.convs[id.Hex()] = &cp
	return id.Hex(), nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil, errs.ErrNotFound.WithMsg("conversation %s not found", id)
	}
	cp := *conv
	return &cp, nil
}

func (f *fakeConversationRepo) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for _, conv := range f.convs {
		if conv.HasParticipant(userID) {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv, ok := f.convs[id]; ok {
		conv.LastMessageAt = at
	}
	return nil
}

func (f *fakeConversationRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.convs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.convs, id)
	return nil
}

func (f *fakeConversationRepo) ExpiredSecrets(ctx context.Context, now time.Time) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for _, conv := range f.convs {
		if conv.Type == model.ConversationSecret && conv.Expired(now) {
			out = append(out, *conv)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	msgs map[string]*model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{msgs: make(map[string]*model.Message)}
}

func (f *fakeMessageRepo) Insert(ctx context.Context, msg *model.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	cp := *msg
	f.msgs[msg.ID.Hex()] = &cp
	return msg.ID.Hex(), nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.msgs[id]
	if !ok {
		return nil, errs.ErrNotFound.WithMsg("message %s not found", id)
	}
	cp := *msg
	return &cp, nil
}

func (f *fakeMessageRepo) UpdateBody(ctx context.Context, id, body string, editedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.msgs[id]
	if !ok {
		return errs.ErrNotFound
	}
	msg.Body = body
	msg.EditedAt = &editedAt
	return nil
}

func (f *fakeMessageRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.msgs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.msgs, id)
	return nil
}

func (f *fakeMessageRepo) DeleteByConversation(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, msg := range f.msgs {
		if msg.ConversationID.Hex() == conversationID {
			delete(f.msgs, id)
		}
	}
	return nil
}

func (f *fakeMessageRepo) SetPinned(ctx context.Context, id string, pinned bool, by string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.msgs[id]
	if !ok {
		return errs.ErrNotFound
	}
	msg.Pinned = pinned
	msg.PinnedBy = by
	msg.PinnedAt = &at
	return nil
}

func (f *fakeMessageRepo) AddReaction(ctx context.Context, id, emoji, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.msgs[id]
	if !ok {
		return errs.ErrNotFound
	}
	msg.Reactions = append(msg.Reactions, model.Reaction{Emoji: emoji, UserID: userID})
	return nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.msgs[id]
	if !ok {
		return errs.ErrNotFound
	}
	for _, u := range msg.ReadBy {
		if u == userID {
			return nil
		}
	}
	msg.ReadBy = append(msg.ReadBy, userID)
	msg.Status = model.StatusRead
	return nil
}

func (f *fakeMessageRepo) SetStatus(ctx context.Context, id, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.msgs[id]
	if !ok || msg.Status != from {
		return false, nil
	}
	msg.Status = to
	return true, nil
}

func (f *fakeMessageRepo) IncrementPollVote(ctx context.Context, id string, optionIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.msgs[id]
	if !ok {
		return errs.ErrNotFound
	}
	if msg.Poll == nil || optionIndex < 0 || optionIndex >= len(msg.Poll.Votes) {
		return errs.ErrInvalidOption
	}
	msg.Poll.Votes[optionIndex]++
	return nil
}

func (f *fakeMessageRepo) RevealScheduled(ctx context.Context, id string) (bool, error) {
	return f.SetStatus(ctx, id, model.StatusScheduled, model.StatusSent)
}

func (f *fakeMessageRepo) ListPage(ctx context.Context, conversationID string, page int64, now time.Time) (*db.PaginatedResult[model.Message], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []model.Message
	for _, msg := range f.msgs {
		if msg.ConversationID.Hex() != conversationID {
			continue
		}
		if msg.Status == model.StatusScheduled || msg.ExpiredEphemeral(now) {
			continue
		}
		items = append(items, *msg)
	}
	return &db.PaginatedResult[model.Message]{
		Data:       items,
		Total:      int64(len(items)),
		Page:       page,
		PageSize:   int64(len(items)),
		TotalPages: 1,
	}, nil
}

func (f *fakeMessageRepo) DueScheduled(ctx context.Context, now time.Time) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, msg := range f.msgs {
		if msg.Status == model.StatusScheduled && msg.ScheduledAt != nil && !msg.ScheduledAt.After(now) {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ExpiredEphemeral(ctx context.Context, now time.Time) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, msg := range f.msgs {
		if msg.ExpiredEphemeral(now) {
			out = append(out, *msg)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[string]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[string]*model.Notification)}
}

func (f *fakeNotificationRepo) Insert(ctx context.Context, n *model.Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := primitive.NewObjectID()
	cp := *n
	cp.ID = id
	f.notifications[id.Hex()] = &cp
	return id.Hex(), nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, recipientID string) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, errs.ErrNotFound
	}
	n.Read = true
	cp := *n
	return &cp, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) Delete(ctx context.Context, id, recipientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return errs.ErrNotFound
	}
	delete(f.notifications, id)
	return nil
}

func (f *fakeNotificationRepo) ListPaged(ctx context.Context, recipientID string, page, pageSize int64) (*db.PaginatedResult[model.Notification], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []model.Notification
	for _, n := range f.notifications {
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

func (f *fakeNotificationRepo) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

type interactionKey struct {
	kind, actor, post string
}

type fakeInteractionRepo struct {
	mu      sync.Mutex
	records map[interactionKey]struct{}
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{records: make(map[interactionKey]struct{})}
}

func (f *fakeInteractionRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (f *fakeInteractionRepo) Create(ctx context.Context, kind, actorID, postID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := interactionKey{kind, actorID, postID}
	if _, ok := f.records[key]; ok {
		return false, nil
	}
	f.records[key] = struct{}{}
	return true, nil
}

func (f *fakeInteractionRepo) Delete(ctx context.Context, kind, actorID, postID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := interactionKey{kind, actorID, postID}
	if _, ok := f.records[key]; !ok {
		return false, nil
	}
	delete(f.records, key)
	return true, nil
}

func (f *fakeInteractionRepo) Exists(ctx context.Context, kind, actorID, postID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[interactionKey{kind, actorID, postID}]
	return ok, nil
}

func (f *fakeInteractionRepo) CountByPost(ctx context.Context, kind, postID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for key := range f.records {
		if key.kind == kind && key.post == postID {
			count++
		}
	}
	return count, nil
}

type fakePostRepo struct {
	mu      sync.Mutex
	posts   map[string]*model.Post
	replies map[string]int64
	reposts map[string]int64
	quotes  map[string]int64
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts:   make(map[string]*model.Post),
		replies: make(map[string]int64),
		reposts: make(map[string]int64),
		quotes:  make(map[string]int64),
	}
}

func (f *fakePostRepo) add(authorID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := primitive.NewObjectID()
	f.posts[id.Hex()] = &model.Post{ID: id, UserID: authorID}
	return id.Hex()
}

func (f *fakePostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return nil, errs.ErrNotFound.WithMsg("post %s not found", id)
	}
	cp := *post
	return &cp, nil
}

func (f *fakePostRepo) SetCounts(ctx context.Context, id string, counts model.PostCounts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return errs.ErrNotFound
	}
	post.Counts = counts
	return nil
}

func (f *fakePostRepo) CountReplies(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replies[id], nil
}

func (f *fakePostRepo) CountReposts(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reposts[id], nil
}

func (f *fakePostRepo) CountQuotes(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quotes[id], nil
}

type fakeReportRepo struct {
	mu      sync.Mutex
	reports []model.Report
}

func newFakeReportRepo() *fakeReportRepo { return &fakeReportRepo{} }

func (f *fakeReportRepo) Insert(ctx context.Context, report *model.Report) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, *report)
	return primitive.NewObjectID().Hex(), nil
}
