package ws

import "github.com/cwrk-planet/collab-service/internal/realtime"

// Inbound frame types, chat endpoint.
const (
	TypeJoinRoom       = "join_room"
	TypeMessage        = "message"
	TypeTyping         = "typing"
	TypeAddReaction    = "add_reaction"
	TypeRemoveReaction = "remove_reaction"
)

// Inbound frame types, notification endpoint.
const (
	TypeMarkRead    = "mark_read"
	TypeMarkAllRead = "mark_all_read"
)

// Outbound frame types.
const (
	TypeHistoryComplete     = "history_complete"
	TypeReactionAck         = "reaction_ack"
	TypeError               = "error"
	TypeRecentNotifications = "recent_notifications"
	TypeNotification        = "notification"
	TypeUnreadCount         = "unread_count"
)

// chatFrame is the superset of all inbound chat frames; Type decides
// which fields matter.
type chatFrame struct {
	Type      string  `json:"type"`
	Content   string  `json:"content"`
	ReplyTo   *string `json:"reply_to"`
	MessageID string  `json:"message_id"`
	Emoji     string  `json:"emoji"`
	UserID    int64   `json:"user_id"`
	IsTyping  bool    `json:"is_typing"`
}

type notificationFrame struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notification_id"`
}

func errorEvent(msg string) realtime.Event {
	return realtime.Event{
		Type: TypeError,
		Payload: struct {
			Message string `json:"message"`
		}{Message: msg},
	}
}

func unreadCountEvent(unread int) realtime.Event {
	return realtime.Event{
		Type: TypeUnreadCount,
		Payload: struct {
			UnreadCount int `json:"unread_count"`
		}{UnreadCount: unread},
	}
}
