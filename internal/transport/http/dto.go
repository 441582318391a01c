package http

import (
	"time"

	"github.com/cwrk-planet/collab-service/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateChatRoomRequest struct {
	Name      *string `json:"name"`
	MemberIDs []int64 `json:"member_ids" validate:"required,min=1"`
}

type ChatRoomItem struct {
	ChatRoomID string    `json:"chatroom_id"`
	ProjectID  string    `json:"project_id"`
	Name       *string   `json:"name"`
	Members    []int64   `json:"members"`
	CreatedAt  time.Time `json:"created_at"`
}

type ChatRoomsResponse struct {
	ChatRooms []ChatRoomItem `json:"chatrooms"`
}

type CreateMessageRequest struct {
	Content   string  `json:"content" validate:"required"`
	ReplyToID *string `json:"reply_to_id"`
}

type MessagesResponse struct {
	Messages []service.ChatMessagePayload `json:"messages"`
	Page     int                          `json:"page"`
	PerPage  int                          `json:"per_page"`
}

type AddReactionRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

type NotificationsResponse struct {
	Notifications []service.NotificationPayload `json:"notifications"`
}

type MarkAllReadResponse struct {
	UpdatedCount int64 `json:"updated_count"`
}
