package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cwrk-planet/collab-service/internal/domain"
	"github.com/cwrk-planet/collab-service/internal/postgres"
	"github.com/cwrk-planet/collab-service/internal/realtime"
)

// In-memory stand-ins for the postgres repositories, shared by the
// service tests.

type busSend struct {
	group string
	ev    realtime.Event
}

type busRecorder struct {
	sends []busSend
}

func (b *busRecorder) Send(_ context.Context, group string, ev realtime.Event) {
	b.sends = append(b.sends, busSend{group: group, ev: ev})
}

func (b *busRecorder) byType(typ string) []busSend {
	var out []busSend
	for _, s := range b.sends {
		if s.ev.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

type fakeRooms struct {
	seq     int
	rooms   map[string]*domain.ChatRoom
	members map[string][]int64
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		rooms:   make(map[string]*domain.ChatRoom),
		members: make(map[string][]int64),
	}
}

func (f *fakeRooms) add(id, projectID string, memberIDs ...int64) {
	f.rooms[id] = &domain.ChatRoom{ID: id, ProjectID: projectID, CreatedAt: time.Now()}
	f.members[id] = memberIDs
}

func (f *fakeRooms) Create(_ context.Context, room *domain.ChatRoom, memberIDs []int64) error {
	f.seq++
	room.ID = fmt.Sprintf("room-%d", f.seq)
	room.CreatedAt = time.Now()
	f.rooms[room.ID] = room
	f.members[room.ID] = memberIDs
	return nil
}

func (f *fakeRooms) Get(_ context.Context, chatroomID, projectID string) (*domain.ChatRoom, error) {
	r, ok := f.rooms[chatroomID]
	if !ok || r.ProjectID != projectID {
		return nil, domain.ErrChatRoomNotFound
	}
	return r, nil
}

func (f *fakeRooms) ListByProject(_ context.Context, projectID string) ([]domain.ChatRoom, error) {
	var out []domain.ChatRoom
	for _, r := range f.rooms {
		if r.ProjectID == projectID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRooms) Delete(_ context.Context, chatroomID string) error {
	if _, ok := f.rooms[chatroomID]; !ok {
		return domain.ErrChatRoomNotFound
	}
	delete(f.rooms, chatroomID)
	delete(f.members, chatroomID)
	return nil
}

func (f *fakeRooms) IsMember(_ context.Context, chatroomID string, userID int64) (bool, error) {
	for _, uid := range f.members[chatroomID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRooms) MemberIDs(_ context.Context, chatroomID string) ([]int64, error) {
	return f.members[chatroomID], nil
}

func (f *fakeRooms) MemberIDsByRooms(_ context.Context, chatroomIDs []string) (map[string][]int64, error) {
	out := make(map[string][]int64, len(chatroomIDs))
	for _, id := range chatroomIDs {
		if ms, ok := f.members[id]; ok {
			out[id] = ms
		}
	}
	return out, nil
}

type fakeMessages struct {
	seq  int
	msgs []domain.Message
}

func (f *fakeMessages) Insert(_ context.Context, chatroomID string, userID int64, content string, replyTo *string) (*domain.Message, error) {
	f.seq++
	m := domain.Message{
		ID:         fmt.Sprintf("msg-%d", f.seq),
		ChatRoomID: chatroomID,
		UserID:     userID,
		Content:    content,
		ReplyTo:    replyTo,
		CreatedAt:  time.Now(),
	}
	f.msgs = append(f.msgs, m)
	return &m, nil
}

func (f *fakeMessages) Get(_ context.Context, messageID, chatroomID string) (*domain.Message, error) {
	for i := range f.msgs {
		if f.msgs[i].ID == messageID && f.msgs[i].ChatRoomID == chatroomID {
			m := f.msgs[i]
			return &m, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (f *fakeMessages) History(_ context.Context, chatroomID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range f.msgs {
		if m.ChatRoomID == chatroomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) Page(ctx context.Context, chatroomID string, p postgres.Page) ([]domain.Message, error) {
	all, _ := f.History(ctx, chatroomID)
	limit, offset := p.LimitOffset()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

type fakeReactions struct {
	rows []domain.MessageReaction
	seq  int64
}

func (f *fakeReactions) find(messageID string, userID int64, emoji string) int {
	for i, r := range f.rows {
		if r.MessageID == messageID && r.UserID == userID && r.Emoji == emoji {
			return i
		}
	}
	return -1
}

func (f *fakeReactions) Insert(_ context.Context, messageID string, userID int64, emoji string) (bool, error) {
	if f.find(messageID, userID, emoji) >= 0 {
		return false, nil
	}
	f.seq++
	f.rows = append(f.rows, domain.MessageReaction{
		ID:        f.seq,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now(),
	})
	return true, nil
}

func (f *fakeReactions) Delete(_ context.Context, messageID string, userID int64, emoji string) (bool, error) {
	i := f.find(messageID, userID, emoji)
	if i < 0 {
		return false, nil
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return true, nil
}

func (f *fakeReactions) MapForMessages(_ context.Context, messageIDs []string) (map[string]map[string][]int64, error) {
	wanted := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = struct{}{}
	}
	out := make(map[string]map[string][]int64)
	for _, r := range f.rows {
		if _, ok := wanted[r.MessageID]; !ok {
			continue
		}
		if out[r.MessageID] == nil {
			out[r.MessageID] = make(map[string][]int64)
		}
		out[r.MessageID][r.Emoji] = append(out[r.MessageID][r.Emoji], r.UserID)
	}
	return out, nil
}

type fakeUsers struct {
	users map[int64]*domain.User
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

type fakeNotifStore struct {
	seq  int64
	rows []domain.Notification
}

func (f *fakeNotifStore) Insert(_ context.Context, n *domain.Notification) error {
	f.seq++
	n.ID = f.seq
	n.IsRead = false
	n.CreatedAt = time.Now()
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotifStore) UnreadCount(_ context.Context, recipientID int64) (int, error) {
	count := 0
	for _, n := range f.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// Recent returns newest first, like the SQL ORDER BY created_at DESC.
func (f *fakeNotifStore) Recent(_ context.Context, recipientID int64, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].RecipientID != recipientID {
			continue
		}
		out = append(out, f.rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkRead reports true for any owned row, read or not, matching the
// UPDATE's RowsAffected.
func (f *fakeNotifStore) MarkRead(_ context.Context, id, recipientID int64) (bool, error) {
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].RecipientID == recipientID {
			f.rows[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotifStore) MarkAllRead(_ context.Context, recipientID int64) (int64, error) {
	var updated int64
	for i := range f.rows {
		if f.rows[i].RecipientID == recipientID && !f.rows[i].IsRead {
			f.rows[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotifStore) Get(_ context.Context, id, recipientID int64) (*domain.Notification, error) {
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].RecipientID == recipientID {
			n := f.rows[i]
			return &n, nil
		}
	}
	return nil, domain.ErrNotificationNotFound
}

func (f *fakeNotifStore) forUser(recipientID int64) []domain.Notification {
	var out []domain.Notification
	for _, n := range f.rows {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

type fakeMembers struct {
	projects map[string][]int64
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{projects: make(map[string][]int64)}
}

func (f *fakeMembers) ProjectExists(_ context.Context, projectID string) (bool, error) {
	_, ok := f.projects[projectID]
	return ok, nil
}

func (f *fakeMembers) IsProjectMember(_ context.Context, projectID string, userID int64) (bool, error) {
	for _, uid := range f.projects[projectID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembers) ProjectMemberIDs(_ context.Context, projectID string) ([]int64, error) {
	return f.projects[projectID], nil
}

// chatEnv wires a ChatService over the in-memory fakes.
type chatEnv struct {
	rooms     *fakeRooms
	messages  *fakeMessages
	reactions *fakeReactions
	users     *fakeUsers
	notifs    *fakeNotifStore
	members   *fakeMembers
	bus       *busRecorder
	notifier  *Notifier
	chat      *ChatService
}

func newChatEnv() *chatEnv {
	env := &chatEnv{
		rooms:     newFakeRooms(),
		messages:  &fakeMessages{},
		reactions: &fakeReactions{},
		notifs:    &fakeNotifStore{},
		members:   newFakeMembers(),
		bus:       &busRecorder{},
	}
	env.users = newFakeUsers(
		&domain.User{ID: 1, Username: "alice", Email: "alice@example.com"},
		&domain.User{ID: 2, Username: "bob", Email: "bob@example.com"},
		&domain.User{ID: 3, Username: "carol", Email: "carol@example.com"},
	)
	env.notifier = NewNotifier(env.notifs, env.members, env.rooms, env.bus)
	env.chat = NewChatService(env.rooms, env.messages, env.reactions, env.users, env.bus, env.notifier)
	return env
}
