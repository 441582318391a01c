package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/collab-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts the chatroom together with its initial member list in
// one transaction.
func (r *RoomRepository) Create(ctx context.Context, room *domain.ChatRoom, memberIDs []int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	room.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO chatrooms (id, project_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, room.ID, room.ProjectID, room.Name).Scan(&room.CreatedAt)
	if err != nil {
		return err
	}

	for _, uid := range memberIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chatroom_members (chatroom_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, room.ID, uid); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Get returns the chatroom scoped to the given project.
func (r *RoomRepository) Get(ctx context.Context, chatroomID, projectID string) (*domain.ChatRoom, error) {
	var rm domain.ChatRoom
	err := r.db.QueryRow(ctx, `
		SELECT id, project_id, name, created_at
		FROM chatrooms
		WHERE id = $1 AND project_id = $2
	`, chatroomID, projectID).Scan(&rm.ID, &rm.ProjectID, &rm.Name, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) ListByProject(ctx context.Context, projectID string) ([]domain.ChatRoom, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, project_id, name, created_at
		FROM chatrooms
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.ChatRoom
	for rows.Next() {
		var rm domain.ChatRoom
		if err := rows.Scan(&rm.ID, &rm.ProjectID, &rm.Name, &rm.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rm)
	}
	return list, rows.Err()
}

// Delete cascades to messages and reactions via FK.
func (r *RoomRepository) Delete(ctx context.Context, chatroomID string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM chatrooms WHERE id = $1`, chatroomID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrChatRoomNotFound
	}
	return nil
}

func (r *RoomRepository) IsMember(ctx context.Context, chatroomID string, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM chatroom_members WHERE chatroom_id=$1 AND user_id=$2)`,
		chatroomID, userID).Scan(&exists)
	return exists, err
}

func (r *RoomRepository) MemberIDs(ctx context.Context, chatroomID string) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM chatroom_members WHERE chatroom_id=$1 ORDER BY joined_at ASC`,
		chatroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MemberIDsByRooms fetches the member lists for all given rooms in one
// query. Rooms without members are absent from the map.
func (r *RoomRepository) MemberIDsByRooms(ctx context.Context, chatroomIDs []string) (map[string][]int64, error) {
	out := make(map[string][]int64, len(chatroomIDs))
	if len(chatroomIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT chatroom_id, user_id
		FROM chatroom_members
		WHERE chatroom_id = ANY($1)
		ORDER BY joined_at ASC
	`, chatroomIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var roomID string
		var uid int64
		if err := rows.Scan(&roomID, &uid); err != nil {
			return nil, err
		}
		out[roomID] = append(out[roomID], uid)
	}
	return out, rows.Err()
}
