package service

import (
	"context"

	"github.com/cwrk-planet/collab-service/internal/domain"
)

type RoomRepo interface {
	Create(ctx context.Context, room *domain.ChatRoom, memberIDs []int64) error
	Get(ctx context.Context, chatroomID, projectID string) (*domain.ChatRoom, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.ChatRoom, error)
	Delete(ctx context.Context, chatroomID string) error
	IsMember(ctx context.Context, chatroomID string, userID int64) (bool, error)
	MemberIDs(ctx context.Context, chatroomID string) ([]int64, error)
	MemberIDsByRooms(ctx context.Context, chatroomIDs []string) (map[string][]int64, error)
}

type MembershipRepo interface {
	ProjectExists(ctx context.Context, projectID string) (bool, error)
	IsProjectMember(ctx context.Context, projectID string, userID int64) (bool, error)
}

type RoomService struct {
	rooms    RoomRepo
	members  MembershipRepo
	notifier *Notifier
}

func NewRoomService(rooms RoomRepo, members MembershipRepo, notifier *Notifier) *RoomService {
	return &RoomService{
		rooms:    rooms,
		members:  members,
		notifier: notifier,
	}
}

// CreateChatRoom creates a room inside a project. The initial member
// list must be non-empty, free of duplicates, and every member must
// already belong to the project.
func (s *RoomService) CreateChatRoom(ctx context.Context, projectID string, actorID int64, name *string, memberIDs []int64) (*domain.ChatRoom, error) {
	if actorID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	exists, err := s.members.ProjectExists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrProjectNotFound
	}

	ok, err := s.members.IsProjectMember(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotMember
	}

	if len(memberIDs) == 0 {
		return nil, domain.ErrInvalidMembers
	}
	seen := make(map[int64]struct{}, len(memberIDs))
	for _, uid := range memberIDs {
		if _, dup := seen[uid]; dup {
			return nil, domain.ErrInvalidMembers
		}
		seen[uid] = struct{}{}

		member, err := s.members.IsProjectMember(ctx, projectID, uid)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, domain.ErrInvalidMembers
		}
	}

	room := &domain.ChatRoom{ProjectID: projectID, Name: name}
	if err := s.rooms.Create(ctx, room, memberIDs); err != nil {
		return nil, err
	}

	s.notifier.ChatRoomCreated(ctx, actorID, room.ID)

	return room, nil
}

// ListChatRooms lists a project's rooms for a project member.
func (s *RoomService) ListChatRooms(ctx context.Context, projectID string, actorID int64) ([]domain.ChatRoom, error) {
	if err := s.requireProjectMember(ctx, projectID, actorID); err != nil {
		return nil, err
	}
	return s.rooms.ListByProject(ctx, projectID)
}

// DeleteChatRoom removes a room; any project member may do this.
// Messages and reactions go with it.
func (s *RoomService) DeleteChatRoom(ctx context.Context, projectID, chatroomID string, actorID int64) error {
	if err := s.requireProjectMember(ctx, projectID, actorID); err != nil {
		return err
	}
	if _, err := s.rooms.Get(ctx, chatroomID, projectID); err != nil {
		return err
	}
	return s.rooms.Delete(ctx, chatroomID)
}

// MembersByRooms resolves the member lists for a set of rooms with a
// single lookup.
func (s *RoomService) MembersByRooms(ctx context.Context, chatroomIDs []string) (map[string][]int64, error) {
	return s.rooms.MemberIDsByRooms(ctx, chatroomIDs)
}

func (s *RoomService) requireProjectMember(ctx context.Context, projectID string, actorID int64) error {
	if actorID == 0 {
		return domain.ErrUnauthenticated
	}
	exists, err := s.members.ProjectExists(ctx, projectID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrProjectNotFound
	}
	ok, err := s.members.IsProjectMember(ctx, projectID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotMember
	}
	return nil
}
