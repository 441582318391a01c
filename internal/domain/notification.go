package domain

import "time"

type NotificationType string

const (
	NotificationTask    NotificationType = "task"
	NotificationProject NotificationType = "project"
	NotificationChat    NotificationType = "chat"
	NotificationEvent   NotificationType = "event"
	NotificationSystem  NotificationType = "system"
)

type Notification struct {
	ID              int64            `db:"id"`
	RecipientID     int64            `db:"recipient_id"`
	Title           string           `db:"title"`
	Message         string           `db:"message"`
	Type            NotificationType `db:"type"`
	RelatedObjectID *string          `db:"related_object_id"`
	IsRead          bool             `db:"is_read"`
	CreatedAt       time.Time        `db:"created_at"`
}
