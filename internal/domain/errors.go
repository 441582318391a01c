package domain

import "errors"

var (
	ErrChatRoomNotFound     = errors.New("chatroom not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrNotificationNotFound = errors.New("notification not found")

	ErrUnauthenticated = errors.New("authentication required")
	ErrNotMember       = errors.New("user is not a member")

	ErrEmptyContent   = errors.New("message content is empty")
	ErrEmptyEmoji     = errors.New("emoji is required")
	ErrInvalidReply   = errors.New("reply target does not belong to this chatroom")
	ErrInvalidMembers = errors.New("invalid member list")
)
