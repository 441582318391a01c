package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/collab-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO notifications (recipient_id, title, message, type, related_object_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at
	`, n.RecipientID, n.Title, n.Message, n.Type, n.RelatedObjectID).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

// Recent returns the newest notifications first. limit <= 0 means all.
func (r *NotificationRepository) Recent(ctx context.Context, recipientID int64, limit int) ([]domain.Notification, error) {
	q := `
		SELECT id, recipient_id, title, message, type, related_object_id, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{recipientID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type,
			&n.RelatedObjectID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND is_read=FALSE`,
		recipientID).Scan(&count)
	return count, err
}

// MarkRead flips exactly one owned notification. marked is false when
// the id does not exist or belongs to someone else; callers decide
// whether that silence is an error.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID int64) (marked bool, err error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read=TRUE WHERE id=$1 AND recipient_id=$2`,
		id, recipientID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read=TRUE WHERE recipient_id=$1 AND is_read=FALSE`,
		recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *NotificationRepository) Get(ctx context.Context, id, recipientID int64) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.QueryRow(ctx, `
		SELECT id, recipient_id, title, message, type, related_object_id, is_read, created_at
		FROM notifications
		WHERE id = $1 AND recipient_id = $2
	`, id, recipientID).Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type,
		&n.RelatedObjectID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}
