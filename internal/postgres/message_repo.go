package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/collab-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Insert(ctx context.Context, chatroomID string, userID int64, content string, replyTo *string) (*domain.Message, error) {
	m := domain.Message{
		ID:         uuid.NewString(),
		ChatRoomID: chatroomID,
		UserID:     userID,
		Content:    content,
		ReplyTo:    replyTo,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO messages (id, chatroom_id, user_id, content, reply_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, m.ID, chatroomID, userID, content, replyTo).Scan(&m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get returns the message scoped to its chatroom.
func (r *MessageRepository) Get(ctx context.Context, messageID, chatroomID string) (*domain.Message, error) {
	var m domain.Message
	err := r.db.QueryRow(ctx, `
		SELECT id, chatroom_id, user_id, content, reply_to, created_at
		FROM messages
		WHERE id = $1 AND chatroom_id = $2
	`, messageID, chatroomID).Scan(&m.ID, &m.ChatRoomID, &m.UserID, &m.Content, &m.ReplyTo, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

// History returns the full ordered history of a room, oldest first.
// The socket join replay is deliberately unpaginated; REST listing
// goes through Page instead.
func (r *MessageRepository) History(ctx context.Context, chatroomID string) ([]domain.Message, error) {
	return r.list(ctx, chatroomID, 0, 0)
}

// Page returns one page of the ascending history.
func (r *MessageRepository) Page(ctx context.Context, chatroomID string, p Page) ([]domain.Message, error) {
	limit, offset := p.LimitOffset()
	return r.list(ctx, chatroomID, limit, offset)
}

func (r *MessageRepository) list(ctx context.Context, chatroomID string, limit, offset int) ([]domain.Message, error) {
	q := `
		SELECT id, chatroom_id, user_id, content, reply_to, created_at
		FROM messages
		WHERE chatroom_id = $1
		ORDER BY created_at ASC, id ASC
	`
	args := []any{chatroomID}
	if limit > 0 {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChatRoomID, &m.UserID, &m.Content, &m.ReplyTo, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
