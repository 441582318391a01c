package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cwrk-planet/collab-service/internal/domain"
	"github.com/cwrk-planet/collab-service/internal/postgres"
	"github.com/cwrk-planet/collab-service/internal/realtime"
)

type MessageStore interface {
	Insert(ctx context.Context, chatroomID string, userID int64, content string, replyTo *string) (*domain.Message, error)
	Get(ctx context.Context, messageID, chatroomID string) (*domain.Message, error)
	History(ctx context.Context, chatroomID string) ([]domain.Message, error)
	Page(ctx context.Context, chatroomID string, p postgres.Page) ([]domain.Message, error)
}

type ReactionStore interface {
	Insert(ctx context.Context, messageID string, userID int64, emoji string) (created bool, err error)
	Delete(ctx context.Context, messageID string, userID int64, emoji string) (deleted bool, err error)
	MapForMessages(ctx context.Context, messageIDs []string) (map[string]map[string][]int64, error)
}

type RoomStore interface {
	Get(ctx context.Context, chatroomID, projectID string) (*domain.ChatRoom, error)
	IsMember(ctx context.Context, chatroomID string, userID int64) (bool, error)
}

type UserStore interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
}

// ChatMessagePayload is the wire shape of one chat message, shared by
// the socket broadcast, the history replay and the REST listing.
type ChatMessagePayload struct {
	MessageID      string             `json:"message_id"`
	ChatRoomID     string             `json:"chatroom_id"`
	UserID         int64              `json:"user_id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	ProfilePicture *string            `json:"profile_picture"`
	Content        string             `json:"content"`
	Timestamp      string             `json:"timestamp"`
	ReplyToMessage *ReplySummary      `json:"reply_to_message,omitempty"`
	Reactions      map[string][]int64 `json:"reactions"`
}

type ReplySummary struct {
	MessageID string `json:"message_id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
}

type ReactionPayload struct {
	MessageID string `json:"message_id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name,omitempty"`
	Emoji     string `json:"emoji"`
}

// ToggleResult reports which way an add_reaction toggled.
type ToggleResult struct {
	Toggled  string          `json:"toggled"` // "added" | "removed"
	Reaction ReactionPayload `json:"reaction"`
}

type chatMessageEvent struct {
	Message ChatMessagePayload `json:"message"`
}

type reactionEvent struct {
	Reaction ReactionPayload `json:"reaction"`
}

// ChatService is the one code path behind both the socket protocol and
// the REST collaborator surface: identical persistence, identical
// broadcasts, identical notification side effects.
type ChatService struct {
	rooms     RoomStore
	messages  MessageStore
	reactions ReactionStore
	users     UserStore
	bus       realtime.Bus
	notifier  *Notifier
}

func NewChatService(rooms RoomStore, messages MessageStore, reactions ReactionStore, users UserStore, bus realtime.Bus, notifier *Notifier) *ChatService {
	return &ChatService{
		rooms:     rooms,
		messages:  messages,
		reactions: reactions,
		users:     users,
		bus:       bus,
		notifier:  notifier,
	}
}

// SendMessage validates, persists and broadcasts one chat message,
// then triggers best-effort notifications. The returned payload is
// what every subscriber saw.
func (s *ChatService) SendMessage(ctx context.Context, projectID, chatroomID string, senderID int64, content string, replyToID *string) (*ChatMessagePayload, error) {
	if senderID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if _, err := s.rooms.Get(ctx, chatroomID, projectID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}

	var original *domain.Message
	if replyToID != nil && *replyToID != "" {
		orig, err := s.messages.Get(ctx, *replyToID, chatroomID)
		if err != nil {
			if errors.Is(err, domain.ErrMessageNotFound) {
				return nil, domain.ErrInvalidReply
			}
			return nil, err
		}
		original = orig
	}

	var replyTo *string
	if original != nil {
		replyTo = &original.ID
	}
	msg, err := s.messages.Insert(ctx, chatroomID, senderID, content, replyTo)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}

	payload := s.messagePayload(ctx, msg, sender, original, map[string][]int64{})

	s.bus.Send(ctx, realtime.ChatGroup(chatroomID), realtime.Event{
		Type:    "message",
		Payload: chatMessageEvent{Message: payload},
	})

	// Notifications are best-effort and strictly after the write.
	s.notifier.newMessage(ctx, sender, msg.ID, chatroomID)
	if original != nil {
		s.notifier.reply(ctx, sender, msg.ID, original.UserID)
	}

	return &payload, nil
}

// History returns the full ordered history for the socket join replay.
// Room existence (scoped to the project) is the only gate; the socket
// endpoint is deliberately permissive.
func (s *ChatService) History(ctx context.Context, projectID, chatroomID string) ([]ChatMessagePayload, error) {
	if _, err := s.rooms.Get(ctx, chatroomID, projectID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.History(ctx, chatroomID)
	if err != nil {
		return nil, err
	}
	return s.messagePayloads(ctx, msgs)
}

// ListMessages is the paginated REST listing; unlike the socket replay
// it is membership-gated.
func (s *ChatService) ListMessages(ctx context.Context, projectID, chatroomID string, userID int64, p postgres.Page) ([]ChatMessagePayload, error) {
	if _, err := s.rooms.Get(ctx, chatroomID, projectID); err != nil {
		return nil, err
	}
	member, err := s.rooms.IsMember(ctx, chatroomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, domain.ErrNotMember
	}

	msgs, err := s.messages.Page(ctx, chatroomID, p)
	if err != nil {
		return nil, err
	}
	return s.messagePayloads(ctx, msgs)
}

// ToggleReaction adds the (message, user, emoji) reaction, or removes
// it when an identical one already exists. The unique constraint at
// the storage layer decides which way the toggle goes, so concurrent
// adds from the same user cannot drift.
func (s *ChatService) ToggleReaction(ctx context.Context, projectID, chatroomID, messageID string, userID int64, emoji string) (*ToggleResult, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if emoji == "" {
		return nil, domain.ErrEmptyEmoji
	}
	if _, err := s.rooms.Get(ctx, chatroomID, projectID); err != nil {
		return nil, err
	}
	msg, err := s.messages.Get(ctx, messageID, chatroomID)
	if err != nil {
		return nil, err
	}

	member, err := s.rooms.IsMember(ctx, chatroomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, domain.ErrNotMember
	}

	created, err := s.reactions.Insert(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}

	if !created {
		// Identical reaction existed: this add IS the removal path.
		// No notification on removal.
		if _, err := s.reactions.Delete(ctx, messageID, userID, emoji); err != nil {
			return nil, err
		}
		reaction := ReactionPayload{MessageID: messageID, UserID: userID, Emoji: emoji}
		s.bus.Send(ctx, realtime.ChatGroup(chatroomID), realtime.Event{
			Type:    "reaction_removed",
			Payload: reactionEvent{Reaction: reaction},
		})
		return &ToggleResult{Toggled: "removed", Reaction: reaction}, nil
	}

	reactor, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	reaction := ReactionPayload{
		MessageID: messageID,
		UserID:    userID,
		Name:      reactor.Username,
		Emoji:     emoji,
	}
	s.bus.Send(ctx, realtime.ChatGroup(chatroomID), realtime.Event{
		Type:    "reaction_added",
		Payload: reactionEvent{Reaction: reaction},
	})
	s.notifier.reaction(ctx, reactor, messageID, msg.UserID, emoji)

	return &ToggleResult{Toggled: "added", Reaction: reaction}, nil
}

// RemoveReaction is the explicit, non-toggling delete. Removing an
// absent reaction is a no-op, not an error. Never notifies.
func (s *ChatService) RemoveReaction(ctx context.Context, projectID, chatroomID, messageID string, userID int64, emoji string) error {
	if userID == 0 {
		return domain.ErrUnauthenticated
	}
	if _, err := s.rooms.Get(ctx, chatroomID, projectID); err != nil {
		return err
	}
	if _, err := s.messages.Get(ctx, messageID, chatroomID); err != nil {
		return err
	}

	if _, err := s.reactions.Delete(ctx, messageID, userID, emoji); err != nil {
		return err
	}

	s.bus.Send(ctx, realtime.ChatGroup(chatroomID), realtime.Event{
		Type: "reaction_removed",
		Payload: reactionEvent{Reaction: ReactionPayload{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		}},
	})
	return nil
}

// Typing relays a typing indicator to the room. No persistence, no
// validation beyond structure.
func (s *ChatService) Typing(ctx context.Context, chatroomID string, userID int64, isTyping bool) {
	s.bus.Send(ctx, realtime.ChatGroup(chatroomID), realtime.Event{
		Type: "typing",
		Payload: struct {
			UserID   int64 `json:"user_id"`
			IsTyping bool  `json:"is_typing"`
		}{UserID: userID, IsTyping: isTyping},
	})
}

func (s *ChatService) messagePayloads(ctx context.Context, msgs []domain.Message) ([]ChatMessagePayload, error) {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	reactions, err := s.reactions.MapForMessages(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Message, len(msgs))
	for i := range msgs {
		byID[msgs[i].ID] = &msgs[i]
	}
	userCache := make(map[int64]*domain.User)

	out := make([]ChatMessagePayload, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		author, err := s.user(ctx, userCache, m.UserID)
		if err != nil {
			return nil, err
		}

		var original *domain.Message
		if m.ReplyTo != nil {
			if orig, ok := byID[*m.ReplyTo]; ok {
				original = orig
			} else if orig, err := s.messages.Get(ctx, *m.ReplyTo, m.ChatRoomID); err == nil {
				original = orig
			}
		}

		r := reactions[m.ID]
		if r == nil {
			r = map[string][]int64{}
		}
		out = append(out, s.messagePayload(ctx, m, author, original, r))
	}
	return out, nil
}

func (s *ChatService) messagePayload(ctx context.Context, m *domain.Message, author *domain.User, original *domain.Message, reactions map[string][]int64) ChatMessagePayload {
	p := ChatMessagePayload{
		MessageID:      m.ID,
		ChatRoomID:     m.ChatRoomID,
		UserID:         author.ID,
		Name:           author.Username,
		Email:          author.Email,
		ProfilePicture: author.AvatarURL,
		Content:        m.Content,
		Timestamp:      m.CreatedAt.Format(time.RFC3339),
		Reactions:      reactions,
	}
	if original != nil {
		summary := &ReplySummary{
			MessageID: original.ID,
			UserID:    original.UserID,
			Content:   original.Content,
		}
		if origAuthor, err := s.users.Get(ctx, original.UserID); err == nil {
			summary.Name = origAuthor.Username
		}
		p.ReplyToMessage = summary
	}
	return p
}

func (s *ChatService) user(ctx context.Context, cache map[int64]*domain.User, id int64) (*domain.User, error) {
	if u, ok := cache[id]; ok {
		return u, nil
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = u
	return u, nil
}
