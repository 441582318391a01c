package service

import (
	"context"

	"github.com/cwrk-planet/collab-service/internal/domain"
)

type NotificationRepo interface {
	Recent(ctx context.Context, recipientID int64, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, id, recipientID int64) (bool, error)
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
	Get(ctx context.Context, id, recipientID int64) (*domain.Notification, error)
}

// recentLimit is how many notifications the dispatcher replays on
// connect.
const recentLimit = 10

type NotificationService struct {
	store NotificationRepo
}

func NewNotificationService(store NotificationRepo) *NotificationService {
	return &NotificationService{store: store}
}

// Recent returns the newest notifications (at most 10) plus the
// current unread count, for the connect-time replay.
func (s *NotificationService) Recent(ctx context.Context, userID int64) ([]NotificationPayload, int, error) {
	notifs, err := s.store.Recent(ctx, userID, recentLimit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	out := make([]NotificationPayload, 0, len(notifs))
	for i := range notifs {
		out = append(out, notificationPayload(&notifs[i]))
	}
	return out, unread, nil
}

// List returns all of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int64) ([]NotificationPayload, error) {
	notifs, err := s.store.Recent(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]NotificationPayload, 0, len(notifs))
	for i := range notifs {
		out = append(out, notificationPayload(&notifs[i]))
	}
	return out, nil
}

// MarkRead marks one owned notification read and returns the updated
// unread count. Missing and foreign ids are deliberately the same
// silent no-op so notification ids of other users cannot be probed.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) (int, error) {
	if _, err := s.store.MarkRead(ctx, notificationID, userID); err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, userID)
}

// MarkReadStrict is the REST variant: it reports not-found instead of
// no-oping and returns the updated notification.
func (s *NotificationService) MarkReadStrict(ctx context.Context, userID, notificationID int64) (*NotificationPayload, error) {
	marked, err := s.store.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, domain.ErrNotificationNotFound
	}
	n, err := s.store.Get(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}
	p := notificationPayload(n)
	return &p, nil
}

// MarkAllRead marks everything read in one operation and returns how
// many rows flipped plus the (zero) unread count.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (updated int64, unread int, err error) {
	updated, err = s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	unread, err = s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return updated, unread, nil
}
