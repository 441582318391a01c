package service

import (
	"context"
	"testing"

	"github.com/cwrk-planet/collab-service/internal/domain"
	"github.com/cwrk-planet/collab-service/internal/realtime"
)

func newNotifierEnv() (*Notifier, *fakeNotifStore, *fakeMembers, *fakeRooms, *busRecorder) {
	notifs := &fakeNotifStore{}
	members := newFakeMembers()
	rooms := newFakeRooms()
	bus := &busRecorder{}
	return NewNotifier(notifs, members, rooms, bus), notifs, members, rooms, bus
}

func TestNotify_PersistsAndPushes(t *testing.T) {
	n, store, _, _, bus := newNotifierEnv()

	notif, err := n.Notify(context.Background(), 5, "タスク通知", "本文", domain.NotificationTask, nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if notif.ID == 0 {
		t.Fatal("id not assigned")
	}
	if got := store.forUser(5); len(got) != 1 {
		t.Fatalf("persisted %d, want 1", len(got))
	}

	sends := bus.byType("notification")
	if len(sends) != 1 {
		t.Fatalf("got %d pushes, want 1", len(sends))
	}
	if sends[0].group != realtime.UserGroup(5) {
		t.Fatalf("pushed to %s", sends[0].group)
	}
	ev, ok := sends[0].ev.Payload.(notificationEvent)
	if !ok {
		t.Fatalf("payload type %T", sends[0].ev.Payload)
	}
	if ev.UnreadCount != 1 {
		t.Fatalf("unread count: %d", ev.UnreadCount)
	}
	if ev.Notification.Type != "task" {
		t.Fatalf("type: %s", ev.Notification.Type)
	}
}

func TestTaskCreated_SuppressesActor(t *testing.T) {
	n, store, members, _, _ := newNotifierEnv()
	members.projects["proj-1"] = []int64{1, 2, 3}

	n.TaskCreated(context.Background(), 1, "proj-1", TaskRef{ID: "task-9", Name: "設計"})

	if got := store.forUser(1); len(got) != 0 {
		t.Fatalf("actor was notified: %d", len(got))
	}
	for _, uid := range []int64{2, 3} {
		got := store.forUser(uid)
		if len(got) != 1 {
			t.Fatalf("user %d: got %d, want 1", uid, len(got))
		}
		if got[0].Title != "タスク通知" {
			t.Fatalf("title: %s", got[0].Title)
		}
		if got[0].Message != "新しいタスク『設計』が追加されました" {
			t.Fatalf("message: %s", got[0].Message)
		}
		if got[0].RelatedObjectID == nil || *got[0].RelatedObjectID != "task-9" {
			t.Fatalf("related object: %v", got[0].RelatedObjectID)
		}
	}
}

func TestTaskStatusChanged_Templates(t *testing.T) {
	n, store, members, _, _ := newNotifierEnv()
	members.projects["proj-1"] = []int64{1, 2}

	n.TaskStatusChanged(context.Background(), 1, "proj-1", TaskRef{ID: "t1", Name: "実装"}, "done")
	n.TaskStatusChanged(context.Background(), 1, "proj-1", TaskRef{ID: "t1", Name: "実装"}, "in_progress")

	got := store.forUser(2)
	if len(got) != 2 {
		t.Fatalf("got %d notifications, want 2", len(got))
	}
	if got[0].Title != "タスク通知" || got[0].Message != "タスク『実装』が完了しました" {
		t.Fatalf("done transition: %s / %s", got[0].Title, got[0].Message)
	}
	if got[1].Title != "タスク状態変更" || got[1].Message != "タスク『実装』の状態が変更されました" {
		t.Fatalf("generic transition: %s / %s", got[1].Title, got[1].Message)
	}
}

func TestTaskAssigned_OnlyAssignees(t *testing.T) {
	n, store, _, _, _ := newNotifierEnv()

	n.TaskAssigned(context.Background(), 1, TaskRef{ID: "t1", Name: "レビュー"}, []int64{2, 1, 4})

	if got := store.forUser(1); len(got) != 0 {
		t.Fatal("self-assignment notified the actor")
	}
	for _, uid := range []int64{2, 4} {
		got := store.forUser(uid)
		if len(got) != 1 {
			t.Fatalf("user %d: got %d", uid, len(got))
		}
		if got[0].Message != "タスク『レビュー』があなたに割り当てられました" {
			t.Fatalf("message: %s", got[0].Message)
		}
	}
}

func TestProjectMembersAdded_OnlyNewMembers(t *testing.T) {
	n, store, members, _, _ := newNotifierEnv()
	members.projects["proj-1"] = []int64{1, 2, 3, 4}

	n.ProjectMembersAdded(context.Background(), 1, ProjectRef{ID: "proj-1", Title: "基盤"}, []int64{3, 4})

	if got := store.forUser(2); len(got) != 0 {
		t.Fatal("existing member was notified")
	}
	got := store.forUser(3)
	if len(got) != 1 || got[0].Message != "プロジェクト『基盤』に新しいメンバーが追加されました" {
		t.Fatalf("new member notification: %+v", got)
	}
}

func TestEventCreated_Template(t *testing.T) {
	n, store, members, _, _ := newNotifierEnv()
	members.projects["proj-1"] = []int64{1, 2}

	n.EventCreated(context.Background(), 1, "proj-1", EventRef{ID: "ev-1", Title: "定例"})

	got := store.forUser(2)
	if len(got) != 1 {
		t.Fatalf("got %d", len(got))
	}
	if got[0].Title != "イベント通知" || got[0].Message != "新しいイベント『定例』が作成されました" {
		t.Fatalf("got %s / %s", got[0].Title, got[0].Message)
	}
	if got[0].Type != domain.NotificationEvent {
		t.Fatalf("type: %s", got[0].Type)
	}
}

func TestChatRoomCreated_NotifiesRoomMembersExceptActor(t *testing.T) {
	n, store, _, rooms, _ := newNotifierEnv()
	rooms.add("room-1", "proj-1", 1, 2, 3)

	n.ChatRoomCreated(context.Background(), 1, "room-1")

	if got := store.forUser(1); len(got) != 0 {
		t.Fatal("creator was notified")
	}
	for _, uid := range []int64{2, 3} {
		got := store.forUser(uid)
		if len(got) != 1 {
			t.Fatalf("user %d: got %d", uid, len(got))
		}
		if got[0].Title != "チャットルーム通知" || got[0].Message != "新しいチャットルームが作成されました" {
			t.Fatalf("got %s / %s", got[0].Title, got[0].Message)
		}
	}
}
