package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReactionRepository struct {
	db *pgxpool.Pool
}

func NewReactionRepository(db *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Insert attempts to add a (message, user, emoji) reaction. created is
// false when the row already exists; the unique constraint, not any
// in-memory state, decides the toggle under concurrent adds.
func (r *ReactionRepository) Insert(ctx context.Context, messageID string, userID int64, emoji string) (created bool, err error) {
	cmd, err := r.db.Exec(ctx, `
		INSERT INTO message_reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING
	`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// Delete removes the reaction if present; absence is not an error.
func (r *ReactionRepository) Delete(ctx context.Context, messageID string, userID int64, emoji string) (deleted bool, err error) {
	cmd, err := r.db.Exec(ctx, `
		DELETE FROM message_reactions
		WHERE message_id=$1 AND user_id=$2 AND emoji=$3
	`, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// MapForMessages returns emoji -> reacting user ids per message id.
func (r *ReactionRepository) MapForMessages(ctx context.Context, messageIDs []string) (map[string]map[string][]int64, error) {
	out := make(map[string]map[string][]int64, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT message_id, emoji, user_id
		FROM message_reactions
		WHERE message_id = ANY($1)
		ORDER BY id ASC
	`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msgID, emoji string
		var userID int64
		if err := rows.Scan(&msgID, &emoji, &userID); err != nil {
			return nil, err
		}
		byEmoji, ok := out[msgID]
		if !ok {
			byEmoji = make(map[string][]int64)
			out[msgID] = byEmoji
		}
		byEmoji[emoji] = append(byEmoji[emoji], userID)
	}
	return out, rows.Err()
}
