package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/errs"
	"github.com/OxyHQ/mention-api/internal/event"
	"github.com/OxyHQ/mention-api/internal/model"
	"github.com/OxyHQ/mention-api/internal/repo"
)

// ChatService owns conversation and message entities and their lifecycle
// transitions. Every mutation persists first and broadcasts second, so a
// failed write is never observed by other participants.
type ChatService struct {
	convs       repo.ConversationRepository
	msgs        repo.MessageRepository
	reports     repo.ReportRepository
	notifier    *NotificationService
	broadcaster Broadcaster
	scheduler   *Scheduler
	logger      *zap.Logger
	now         func() time.Time
}

func NewChatService(
	convs repo.ConversationRepository,
	msgs repo.MessageRepository,
	reports repo.ReportRepository,
	notifier *NotificationService,
	broadcaster Broadcaster,
	scheduler *Scheduler,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		convs:       convs,
		msgs:        msgs,
		reports:     reports,
		notifier:    notifier,
		broadcaster: broadcaster,
		scheduler:   scheduler,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateConversation persists a conversation and fans conversationCreated out
// to every participant's user room, so devices that were not in any
// conversation room at creation time still see it.
func (s *ChatService) CreateConversation(ctx context.Context, creator string, p event.CreateConversationPayload) (*model.Conversation, error) {
	if p.Type == "" {
		p.Type = model.ConversationPrivate
	}
	switch p.Type {
	case model.ConversationPrivate, model.ConversationSecret, model.ConversationGroup, model.ConversationChannel:
	default:
		return nil, errs.ErrValidation.WithMsg("unknown conversation type %q", p.Type)
	}

	participants := dedupe(p.Participants)
	if !contains(participants, creator) {
		participants = append(participants, creator)
	}

	now := s.now()
	conv := &model.Conversation{
		Type:          p.Type,
		Topic:         p.Topic,
		Participants:  participants,
		MemberCount:   len(participants),
		IsEncrypted:   p.IsEncrypted,
		IsActive:      true,
		LastMessageAt: now,
		CreatedBy:     creator,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	owner := p.Owner
	if owner == "" {
		owner = creator
	}
	switch p.Type {
	case model.ConversationGroup, model.ConversationChannel:
		if !contains(participants, owner) {
			return nil, errs.ErrValidation.WithMsg("owner must be a participant")
		}
		conv.Owner = owner
		conv.Admins = []string{owner}
	case model.ConversationSecret:
		if p.TTLSeconds <= 0 {
			return nil, errs.ErrValidation.WithMsg("secret conversations require ttlSeconds > 0")
		}
		conv.TTLSeconds = p.TTLSeconds
		expires := now.Add(time.Duration(p.TTLSeconds) * time.Second)
		conv.ExpiresAt = &expires
	}

	id, err := s.convs.Insert(ctx, conv)
	if err != nil {
		return nil, err
	}
	if oid, perr := oidFromHex(id); perr == nil {
		conv.ID = oid
	}

	for _, participant := range participants {
		s.broadcaster.Publish(event.UserRoom(participant), event.EventConversationCreated, conv)
	}

	s.logger.Info("conversation created",
		zap.String("conversation_id", id),
		zap.String("type", conv.Type),
		zap.Int("participants_count", len(participants)),
	)
	return conv, nil
}

// VerifyParticipant resolves the conversation and rejects callers outside
// its participant set.
func (s *ChatService) VerifyParticipant(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errs.ErrNotAParticipant
	}
	return conv, nil
}

// SendMessage validates the sender, persists the message and broadcasts it
// to the conversation room. A future scheduledAt defers the broadcast to the
// target instant; ephemeralExpiresAt arms a deletion broadcast.
func (s *ChatService) SendMessage(ctx context.Context, sender string, p event.SendMessagePayload) (*model.Message, error) {
	conv, err := s.VerifyParticipant(ctx, sender, p.ConversationID)
	if err != nil {
		return nil, err
	}

	convOID, err := oidFromHex(p.ConversationID)
	if err != nil {
		return nil, errs.ErrValidation.WithMsg("invalid conversation id")
	}

	now := s.now()
	msg := &model.Message{
		ConversationID:      convOID,
		SenderID:            sender,
		Body:                p.Body,
		Status:              model.StatusSent,
		Attachments:         p.Attachments,
		Encrypted:           p.Encrypted || conv.IsEncrypted,
		EncryptionAlgorithm: p.EncryptionAlgorithm,
		Signature:           p.Signature,
		CreatedAt:           now,
	}
	if p.ReplyTo != "" {
		replyOID, rerr := oidFromHex(p.ReplyTo)
		if rerr != nil {
			return nil, errs.ErrValidation.WithMsg("invalid replyTo id")
		}
		msg.ReplyTo = &replyOID
	}

	// Deferred delivery: persist gated, reveal at the instant. An already
	// past scheduledAt is an immediate send. An ephemeral TTL on a
	// scheduled message counts from the reveal, not from submission.
	if p.ScheduledAt != nil && p.ScheduledAt.After(now) {
		msg.ScheduledAt = p.ScheduledAt
		msg.Status = model.StatusScheduled
		if p.ExpiresInMs > 0 {
			expiresAt := p.ScheduledAt.Add(time.Duration(p.ExpiresInMs) * time.Millisecond)
			msg.EphemeralExpiresAt = &expiresAt
		}
		if _, err := s.msgs.Insert(ctx, msg); err != nil {
			return nil, err
		}

		id := msg.ID.Hex()
		room := event.ConversationRoom(p.ConversationID)
		s.scheduler.After(p.ScheduledAt.Sub(now), "scheduled message "+id, func() {
			s.revealScheduled(id, room)
		})
		return msg, nil
	}

	if p.ExpiresInMs > 0 {
		expiresAt := now.Add(time.Duration(p.ExpiresInMs) * time.Millisecond)
		msg.EphemeralExpiresAt = &expiresAt
	}

	if _, err := s.msgs.Insert(ctx, msg); err != nil {
		return nil, err
	}
	if terr := s.convs.TouchLastMessage(ctx, p.ConversationID, now); terr != nil {
		s.logger.Warn("failed to touch conversation", zap.Error(terr))
	}

	room := event.ConversationRoom(p.ConversationID)
	s.broadcaster.Publish(room, event.EventMessage, msg)

	if msg.EphemeralExpiresAt != nil {
		id := msg.ID.Hex()
		s.scheduler.After(msg.EphemeralExpiresAt.Sub(now), "ephemeral expiry "+id, func() {
			s.expireEphemeral(id, room)
		})
	}

	if msg.ReplyTo != nil {
		s.notifyReply(ctx, sender, msg)
	}

	return msg, nil
}

// revealScheduled flips a gated message visible and broadcasts it. Runs on
// the scheduler and from the sweep; only the caller whose update matched
// broadcasts, so a timer racing a sweep delivers exactly once and never
// rewinds a message that was read in between.
func (s *ChatService) revealScheduled(messageID, room string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	revealed, err := s.msgs.RevealScheduled(ctx, messageID)
	if err != nil {
		s.logger.Warn("scheduled reveal failed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return
	}
	if !revealed {
		return
	}
	msg, err := s.msgs.GetByID(ctx, messageID)
	if err != nil {
		s.logger.Warn("scheduled reveal fetch failed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return
	}
	s.broadcaster.Publish(room, event.EventMessage, msg)

	if msg.EphemeralExpiresAt != nil {
		s.scheduler.After(msg.EphemeralExpiresAt.Sub(s.now()), "ephemeral expiry "+messageID, func() {
			s.expireEphemeral(messageID, room)
		})
	}
}

// expireEphemeral removes an expired message and broadcasts the deletion.
func (s *ChatService) expireEphemeral(messageID, room string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.msgs.Delete(ctx, messageID); err != nil {
		// already purged elsewhere is fine
		s.logger.Debug("ephemeral purge skipped",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return
	}
	s.broadcaster.Publish(room, event.EventMessageDeleted, event.MessageDeletedPayload{MessageID: messageID})
}

func (s *ChatService) notifyReply(ctx context.Context, sender string, msg *model.Message) {
	original, err := s.msgs.GetByID(ctx, msg.ReplyTo.Hex())
	if err != nil {
		return
	}
	if _, nerr := s.notifier.Notify(ctx, original.SenderID, sender, model.NotificationReply, msg.ID.Hex(), model.EntityMessage); nerr != nil {
		s.logger.Warn("reply notification failed", zap.Error(nerr))
	}
}

// EditMessage updates the body and broadcasts messageEdited.
func (s *ChatService) EditMessage(ctx context.Context, userID string, p event.EditMessagePayload) error {
	if _, err := s.VerifyParticipant(ctx, userID, p.ConversationID); err != nil {
		return err
	}

	editedAt := s.now()
	if err := s.msgs.UpdateBody(ctx, p.MessageID, p.NewBody, editedAt); err != nil {
		return err
	}

	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), event.EventMessageEdited, event.MessageEditedPayload{
		MessageID: p.MessageID,
		NewBody:   p.NewBody,
		EditedAt:  editedAt,
	})
	return nil
}

// DeleteMessage removes a message. unsend selects the messageUnsent event
// name; the semantics are identical.
func (s *ChatService) DeleteMessage(ctx context.Context, userID string, p event.MessageRefPayload, unsend bool) error {
	if _, err := s.VerifyParticipant(ctx, userID, p.ConversationID); err != nil {
		return err
	}

	if err := s.msgs.Delete(ctx, p.MessageID); err != nil {
		return err
	}

	name := event.EventMessageDeleted
	if unsend {
		name = event.EventMessageUnsent
	}
	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), name, event.MessageDeletedPayload{MessageID: p.MessageID})
	return nil
}

// ForwardMessage duplicates a message into the destination conversation with
// forwardedFrom carrying the origin conversation.
func (s *ChatService) ForwardMessage(ctx context.Context, userID string, p event.ForwardMessagePayload) (*model.Message, error) {
	if _, err := s.VerifyParticipant(ctx, userID, p.ToConversationID); err != nil {
		return nil, err
	}

	original, err := s.msgs.GetByID(ctx, p.MessageID)
	if err != nil {
		return nil, err
	}

	toOID, err := oidFromHex(p.ToConversationID)
	if err != nil {
		return nil, errs.ErrValidation.WithMsg("invalid conversation id")
	}
	fromOID := original.ConversationID

	forwarded := &model.Message{
		ConversationID: toOID,
		SenderID:       original.SenderID,
		Body:           original.Body,
		Status:         model.StatusSent,
		Attachments:    original.Attachments,
		ForwardedFrom:  &fromOID,
		CreatedAt:      s.now(),
	}
	if _, err := s.msgs.Insert(ctx, forwarded); err != nil {
		return nil, err
	}

	s.broadcaster.Publish(event.ConversationRoom(p.ToConversationID), event.EventMessageForwarded, event.MessageForwardedPayload{
		MessageID:   forwarded.ID.Hex(),
		ForwardedAt: forwarded.CreatedAt,
	})
	return forwarded, nil
}

// PinMessage toggles the pinned flag and broadcasts messagePinned.
func (s *ChatService) PinMessage(ctx context.Context, userID string, p event.PinMessagePayload) error {
	conv, err := s.VerifyParticipant(ctx, userID, p.ConversationID)
	if err != nil {
		return err
	}
	if !conv.IsAdmin(userID) {
		return errs.ErrNotAParticipant.WithMsg("only admins may pin in %s conversations", conv.Type)
	}

	pinnedAt := s.now()
	if err := s.msgs.SetPinned(ctx, p.MessageID, p.Pin, userID, pinnedAt); err != nil {
		return err
	}

	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), event.EventMessagePinned, event.MessagePinnedPayload{
		MessageID: p.MessageID,
		Pinned:    p.Pin,
		PinnedBy:  userID,
		PinnedAt:  pinnedAt,
	})
	return nil
}

// ReactToMessage appends a reaction and broadcasts messageReaction.
// Reactions are a multiset: repeated reactions from one actor all land.
func (s *ChatService) ReactToMessage(ctx context.Context, userID string, p event.ReactionPayload) error {
	if _, err := s.VerifyParticipant(ctx, userID, p.ConversationID); err != nil {
		return err
	}

	if err := s.msgs.AddReaction(ctx, p.MessageID, p.Emoji, userID); err != nil {
		return err
	}

	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), event.EventMessageReaction, event.MessageReactionPayload{
		MessageID: p.MessageID,
		Emoji:     p.Emoji,
		UserID:    userID,
	})
	return nil
}

// MarkRead adds the reader to readBy, advances status to read and broadcasts
// messageStatusUpdate. Status never regresses.
func (s *ChatService) MarkRead(ctx context.Context, userID string, p event.MessageRefPayload) error {
	if _, err := s.VerifyParticipant(ctx, userID, p.ConversationID); err != nil {
		return err
	}

	msg, err := s.msgs.GetByID(ctx, p.MessageID)
	if err != nil {
		return err
	}
	// a still-gated message is invisible; reading it must not reveal it
	if msg.Status == model.StatusScheduled {
		return errs.ErrNotFound.WithMsg("message %s not found", p.MessageID)
	}

	if err := s.msgs.MarkRead(ctx, p.MessageID, userID); err != nil {
		return err
	}

	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), event.EventMessageStatusUpdate, event.MessageStatusPayload{
		MessageID: p.MessageID,
		Status:    model.StatusRead,
		ReadBy:    userID,
	})
	return nil
}

// MarkDelivered advances a sent message to delivered and broadcasts the
// update. The transition is guarded on the current status, so a receipt
// arriving after the message was read is a silent no-op rather than a
// regression.
func (s *ChatService) MarkDelivered(ctx context.Context, userID string, p event.MessageRefPayload) error {
	if _, err := s.VerifyParticipant(ctx, userID, p.ConversationID); err != nil {
		return err
	}

	advanced, err := s.msgs.SetStatus(ctx, p.MessageID, model.StatusSent, model.StatusDelivered)
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}

	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), event.EventMessageStatusUpdate, event.MessageStatusPayload{
		MessageID: p.MessageID,
		Status:    model.StatusDelivered,
	})
	return nil
}

// CreatePoll persists a poll message with the vote array zeroed to the
// number of options. The array length is fixed here and never drifts.
func (s *ChatService) CreatePoll(ctx context.Context, userID string, p event.CreatePollPayload) (*model.Message, error) {
	if _, err := s.VerifyParticipant(ctx, userID, p.ConversationID); err != nil {
		return nil, err
	}
	if p.Question == "" || len(p.Options) < 2 {
		return nil, errs.ErrValidation.WithMsg("polls need a question and at least two options")
	}

	convOID, err := oidFromHex(p.ConversationID)
	if err != nil {
		return nil, errs.ErrValidation.WithMsg("invalid conversation id")
	}

	msg := &model.Message{
		ConversationID: convOID,
		SenderID:       userID,
		Status:         model.StatusSent,
		Poll: &model.Poll{
			Question: p.Question,
			Options:  p.Options,
			Votes:    make([]int, len(p.Options)),
		},
		CreatedAt: s.now(),
	}
	if _, err := s.msgs.Insert(ctx, msg); err != nil {
		return nil, err
	}

	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), event.EventMessage, msg)
	return msg, nil
}

// VotePoll increments one option's vote count. An index outside the options
// range fails with InvalidOption and leaves the votes untouched.
func (s *ChatService) VotePoll(ctx context.Context, userID string, p event.VotePollPayload) ([]int, error) {
	if _, err := s.VerifyParticipant(ctx, userID, p.ConversationID); err != nil {
		return nil, err
	}

	msg, err := s.msgs.GetByID(ctx, p.MessageID)
	if err != nil {
		return nil, err
	}
	if msg.Poll == nil {
		return nil, errs.ErrNotFound.WithMsg("message %s has no poll", p.MessageID)
	}
	if p.OptionIndex < 0 || p.OptionIndex >= len(msg.Poll.Options) {
		return nil, errs.ErrInvalidOption
	}

	if err := s.msgs.IncrementPollVote(ctx, p.MessageID, p.OptionIndex); err != nil {
		return nil, err
	}

	votes := make([]int, len(msg.Poll.Votes))
	copy(votes, msg.Poll.Votes)
	votes[p.OptionIndex]++

	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), event.EventPollVoted, event.PollVotedPayload{
		MessageID:   p.MessageID,
		OptionIndex: p.OptionIndex,
		Votes:       votes,
	})
	return votes, nil
}

// ReportMessage files a report and broadcasts messageReported.
func (s *ChatService) ReportMessage(ctx context.Context, userID string, p event.ReportMessagePayload) error {
	if _, err := s.VerifyParticipant(ctx, userID, p.ConversationID); err != nil {
		return err
	}

	convOID, err := oidFromHex(p.ConversationID)
	if err != nil {
		return errs.ErrValidation.WithMsg("invalid conversation id")
	}
	msgOID, err := oidFromHex(p.MessageID)
	if err != nil {
		return errs.ErrValidation.WithMsg("invalid message id")
	}

	report := &model.Report{
		ConversationID: convOID,
		MessageID:      msgOID,
		Reporter:       userID,
		Reason:         p.Reason,
		CreatedAt:      s.now(),
	}
	if _, err := s.reports.Insert(ctx, report); err != nil {
		return err
	}

	s.broadcaster.Publish(event.ConversationRoom(p.ConversationID), event.EventMessageReported, event.MessageReportedPayload{
		MessageID: p.MessageID,
		Reporter:  userID,
		Reason:    p.Reason,
	})
	return nil
}

// ListConversations returns the caller's active conversations.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.convs.ListForUser(ctx, userID)
}

// ListMessages returns one visible page of a conversation the caller
// participates in.
func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if _, err := s.VerifyParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.msgs.ListPage(ctx, conversationID, page, s.now())
}

// Sweep reconciles deferred effects whose in-memory timers were lost:
// overdue scheduled messages are revealed, expired ephemeral messages are
// purged, and expired secret conversations self-destruct. Runs at startup
// and on an interval.
func (s *ChatService) Sweep(ctx context.Context) {
	now := s.now()

	due, err := s.msgs.DueScheduled(ctx, now)
	if err != nil {
		s.logger.Warn("sweep: due scheduled query failed", zap.Error(err))
	}
	for _, msg := range due {
		s.revealScheduled(msg.ID.Hex(), event.ConversationRoom(msg.ConversationID.Hex()))
	}

	expired, err := s.msgs.ExpiredEphemeral(ctx, now)
	if err != nil {
		s.logger.Warn("sweep: expired ephemeral query failed", zap.Error(err))
	}
	for _, msg := range expired {
		s.expireEphemeral(msg.ID.Hex(), event.ConversationRoom(msg.ConversationID.Hex()))
	}

	secrets, err := s.convs.ExpiredSecrets(ctx, now)
	if err != nil {
		s.logger.Warn("sweep: expired secrets query failed", zap.Error(err))
	}
	for _, conv := range secrets {
		id := conv.ID.Hex()
		if err := s.msgs.DeleteByConversation(ctx, id); err != nil {
			s.logger.Warn("sweep: secret message purge failed", zap.String("conversation_id", id), zap.Error(err))
			continue
		}
		if err := s.convs.Delete(ctx, id); err != nil {
			s.logger.Warn("sweep: secret delete failed", zap.String("conversation_id", id), zap.Error(err))
			continue
		}
		s.logger.Info("secret conversation expired", zap.String("conversation_id", id))
	}
}

// StartSweeper arms the periodic reconciliation sweep.
func (s *ChatService) StartSweeper(interval time.Duration) {
	s.scheduler.After(0, "startup sweep", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Sweep(ctx)
	})
	s.scheduler.Every(interval, "reconciliation sweep", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Sweep(ctx)
	})
}

func oidFromHex(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
