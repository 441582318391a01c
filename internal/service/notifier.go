package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/collab-service/internal/domain"
	"github.com/cwrk-planet/collab-service/internal/realtime"
)

type NotificationStore interface {
	Insert(ctx context.Context, n *domain.Notification) error
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
}

type MembershipDirectory interface {
	ProjectMemberIDs(ctx context.Context, projectID string) ([]int64, error)
}

type RoomDirectory interface {
	MemberIDs(ctx context.Context, chatroomID string) ([]int64, error)
}

// References to entities whose CRUD lives outside this core. Mutation
// handlers pass them in explicitly together with the acting user;
// there is no ambient "current user" anywhere.
type TaskRef struct {
	ID   string
	Name string
}

type ProjectRef struct {
	ID    string
	Title string
}

type EventRef struct {
	ID    string
	Title string
}

// NotificationPayload is the wire shape shared by the socket frames
// and the REST listing.
type NotificationPayload struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Message         string  `json:"message"`
	Type            string  `json:"notification_type"`
	RelatedObjectID *string `json:"related_object_id"`
	IsRead          bool    `json:"is_read"`
	CreatedAt       string  `json:"created_at"`
}

func notificationPayload(n *domain.Notification) NotificationPayload {
	return NotificationPayload{
		ID:              n.ID,
		Title:           n.Title,
		Message:         n.Message,
		Type:            string(n.Type),
		RelatedObjectID: n.RelatedObjectID,
		IsRead:          n.IsRead,
		CreatedAt:       n.CreatedAt.Format(time.RFC3339),
	}
}

type notificationEvent struct {
	Notification NotificationPayload `json:"notification"`
	UnreadCount  int                 `json:"unread_count"`
}

// Notifier is the single entry point turning domain mutations into
// persisted notifications and live pushes. Every handler takes the
// acting user first and never notifies the actor.
type Notifier struct {
	store   NotificationStore
	members MembershipDirectory
	rooms   RoomDirectory
	bus     realtime.Bus
}

func NewNotifier(store NotificationStore, members MembershipDirectory, rooms RoomDirectory, bus realtime.Bus) *Notifier {
	return &Notifier{
		store:   store,
		members: members,
		rooms:   rooms,
		bus:     bus,
	}
}

// Notify persists one notification, recomputes the recipient's unread
// count and pushes a live update to the recipient's personal group.
// Fan-out failure never reaches the caller.
func (n *Notifier) Notify(ctx context.Context, recipientID int64, title, message string, typ domain.NotificationType, relatedObjectID *string) (*domain.Notification, error) {
	notif := &domain.Notification{
		RecipientID:     recipientID,
		Title:           title,
		Message:         message,
		Type:            typ,
		RelatedObjectID: relatedObjectID,
	}
	if err := n.store.Insert(ctx, notif); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	unread, err := n.store.UnreadCount(ctx, recipientID)
	if err != nil {
		slog.Warn("unread count after notify failed", "recipient", recipientID, "err", err)
	}

	n.bus.Send(ctx, realtime.UserGroup(recipientID), realtime.Event{
		Type: "notification",
		Payload: notificationEvent{
			Notification: notificationPayload(notif),
			UnreadCount:  unread,
		},
	})

	return notif, nil
}

// notifyEach fans one notification out to every recipient except the
// actor. Best-effort per recipient.
func (n *Notifier) notifyEach(ctx context.Context, recipients []int64, actorID int64, title, message string, typ domain.NotificationType, relatedObjectID *string) {
	for _, uid := range recipients {
		if uid == actorID {
			continue
		}
		if _, err := n.Notify(ctx, uid, title, message, typ, relatedObjectID); err != nil {
			slog.Warn("notify failed", "recipient", uid, "type", typ, "err", err)
		}
	}
}

func (n *Notifier) notifyProject(ctx context.Context, actorID int64, projectID, title, message string, typ domain.NotificationType, relatedObjectID *string) {
	members, err := n.members.ProjectMemberIDs(ctx, projectID)
	if err != nil {
		slog.Warn("project member lookup failed", "project", projectID, "err", err)
		return
	}
	n.notifyEach(ctx, members, actorID, title, message, typ, relatedObjectID)
}

// ---- task ----

func (n *Notifier) TaskCreated(ctx context.Context, actorID int64, projectID string, task TaskRef) {
	n.notifyProject(ctx, actorID, projectID,
		"タスク通知",
		fmt.Sprintf("新しいタスク『%s』が追加されました", task.Name),
		domain.NotificationTask, &task.ID)
}

func (n *Notifier) TaskUpdated(ctx context.Context, actorID int64, projectID string, task TaskRef) {
	n.notifyProject(ctx, actorID, projectID,
		"タスク通知",
		fmt.Sprintf("タスク『%s』が更新されました", task.Name),
		domain.NotificationTask, &task.ID)
}

// TaskStatusChanged uses the completion template only for the "done"
// transition; any other status change gets the generic one.
func (n *Notifier) TaskStatusChanged(ctx context.Context, actorID int64, projectID string, task TaskRef, newStatus string) {
	if newStatus == "done" {
		n.notifyProject(ctx, actorID, projectID,
			"タスク通知",
			fmt.Sprintf("タスク『%s』が完了しました", task.Name),
			domain.NotificationTask, &task.ID)
		return
	}
	n.notifyProject(ctx, actorID, projectID,
		"タスク状態変更",
		fmt.Sprintf("タスク『%s』の状態が変更されました", task.Name),
		domain.NotificationTask, &task.ID)
}

func (n *Notifier) TaskCommented(ctx context.Context, actorID int64, task TaskRef, assigneeIDs []int64) {
	n.notifyEach(ctx, assigneeIDs, actorID,
		"新しいコメント",
		fmt.Sprintf("タスク『%s』に新しいコメントが追加されました", task.Name),
		domain.NotificationTask, &task.ID)
}

func (n *Notifier) TaskAssigned(ctx context.Context, actorID int64, task TaskRef, assignedIDs []int64) {
	n.notifyEach(ctx, assignedIDs, actorID,
		"タスク割り当て",
		fmt.Sprintf("タスク『%s』があなたに割り当てられました", task.Name),
		domain.NotificationTask, &task.ID)
}

// ---- project ----

func (n *Notifier) ProjectCreated(ctx context.Context, actorID int64, project ProjectRef) {
	n.notifyProject(ctx, actorID, project.ID,
		"プロジェクト通知",
		fmt.Sprintf("新しいプロジェクト『%s』が作成されました", project.Title),
		domain.NotificationProject, &project.ID)
}

func (n *Notifier) ProjectUpdated(ctx context.Context, actorID int64, project ProjectRef) {
	n.notifyProject(ctx, actorID, project.ID,
		"プロジェクト通知",
		fmt.Sprintf("プロジェクト『%s』が更新されました", project.Title),
		domain.NotificationProject, &project.ID)
}

// ProjectMembersAdded notifies only the newly added members.
func (n *Notifier) ProjectMembersAdded(ctx context.Context, actorID int64, project ProjectRef, newMemberIDs []int64) {
	n.notifyEach(ctx, newMemberIDs, actorID,
		"プロジェクト通知",
		fmt.Sprintf("プロジェクト『%s』に新しいメンバーが追加されました", project.Title),
		domain.NotificationProject, &project.ID)
}

// ---- event ----

func (n *Notifier) EventCreated(ctx context.Context, actorID int64, projectID string, event EventRef) {
	n.notifyProject(ctx, actorID, projectID,
		"イベント通知",
		fmt.Sprintf("新しいイベント『%s』が作成されました", event.Title),
		domain.NotificationEvent, &event.ID)
}

func (n *Notifier) EventUpdated(ctx context.Context, actorID int64, projectID string, event EventRef) {
	n.notifyProject(ctx, actorID, projectID,
		"イベント通知",
		fmt.Sprintf("イベント『%s』が更新されました", event.Title),
		domain.NotificationEvent, &event.ID)
}

// ---- chat ----

func (n *Notifier) ChatRoomCreated(ctx context.Context, actorID int64, chatroomID string) {
	members, err := n.rooms.MemberIDs(ctx, chatroomID)
	if err != nil {
		slog.Warn("chatroom member lookup failed", "chatroom", chatroomID, "err", err)
		return
	}
	n.notifyEach(ctx, members, actorID,
		"チャットルーム通知",
		"新しいチャットルームが作成されました",
		domain.NotificationChat, &chatroomID)
}

func (n *Notifier) newMessage(ctx context.Context, sender *domain.User, messageID, chatroomID string) {
	members, err := n.rooms.MemberIDs(ctx, chatroomID)
	if err != nil {
		slog.Warn("chatroom member lookup failed", "chatroom", chatroomID, "err", err)
		return
	}
	n.notifyEach(ctx, members, sender.ID,
		"新しいメッセージ",
		fmt.Sprintf("%sさんから新しいメッセージが届いています", sender.Username),
		domain.NotificationChat, &messageID)
}

func (n *Notifier) reply(ctx context.Context, sender *domain.User, replyMessageID string, originalAuthorID int64) {
	if originalAuthorID == sender.ID {
		return
	}
	if _, err := n.Notify(ctx, originalAuthorID,
		"返信",
		fmt.Sprintf("%sさんがあなたのメッセージに返信しました", sender.Username),
		domain.NotificationChat, &replyMessageID); err != nil {
		slog.Warn("reply notify failed", "recipient", originalAuthorID, "err", err)
	}
}

func (n *Notifier) reaction(ctx context.Context, sender *domain.User, messageID string, authorID int64, emoji string) {
	if authorID == sender.ID {
		return
	}
	if _, err := n.Notify(ctx, authorID,
		"リアクション",
		fmt.Sprintf("%sさんが%sでリアクションしました", sender.Username, emoji),
		domain.NotificationChat, &messageID); err != nil {
		slog.Warn("reaction notify failed", "recipient", authorID, "err", err)
	}
}
