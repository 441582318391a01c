package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/collab-service/internal/domain"
	"github.com/cwrk-planet/collab-service/internal/realtime"
	"github.com/cwrk-planet/collab-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type ChatSvc interface {
	History(ctx context.Context, projectID, chatroomID string) ([]service.ChatMessagePayload, error)
	SendMessage(ctx context.Context, projectID, chatroomID string, senderID int64, content string, replyToID *string) (*service.ChatMessagePayload, error)
	ToggleReaction(ctx context.Context, projectID, chatroomID, messageID string, userID int64, emoji string) (*service.ToggleResult, error)
	RemoveReaction(ctx context.Context, projectID, chatroomID, messageID string, userID int64, emoji string) error
	Typing(ctx context.Context, chatroomID string, userID int64, isTyping bool)
}

type NotificationSvc interface {
	Recent(ctx context.Context, userID int64) ([]service.NotificationPayload, int, error)
	MarkRead(ctx context.Context, userID, notificationID int64) (int, error)
	MarkAllRead(ctx context.Context, userID int64) (updated int64, unread int, err error)
}

type TokenResolver interface {
	ResolveUserID(tokenStr string) (int64, error)
}

type Server struct {
	upgrader websocket.Upgrader
	registry *realtime.Registry
	chatSvc  ChatSvc
	notifSvc NotificationSvc
	resolver TokenResolver

	pingEvery time.Duration
}

func NewServer(registry *realtime.Registry, chatSvc ChatSvc, notifSvc NotificationSvc, resolver TokenResolver) *Server {
	return &Server{
		registry: registry,
		chatSvc:  chatSvc,
		notifSvc: notifSvc,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// resolveIdentity maps ?access_token= to a user id. 0 means anonymous.
func (s *Server) resolveIdentity(r *http.Request) int64 {
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		return 0
	}
	uid, err := s.resolver.ResolveUserID(token)
	if err != nil {
		slog.Debug("ws token rejected", "err", err)
		return 0
	}
	return uid
}

// HandleChat is the chat endpoint:
// GET /ws/projects/{project_id}/chat/{chatroom_id}?access_token=...
//
// The connect is deliberately permissive: a bad or missing token
// leaves the identity anonymous and the connection open, and
// authorization happens per action. The notification endpoint is the
// strict one.
func (s *Server) HandleChat(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	chatroomID := chi.URLParam(r, "chatroom_id")
	if projectID == "" || chatroomID == "" {
		http.Error(w, "missing project or chatroom id", http.StatusBadRequest)
		return
	}

	uid := s.resolveIdentity(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	go s.writeLoop(r.Context(), c)
	s.chatReadLoop(r.Context(), c, projectID, chatroomID, uid)

	s.registry.Drop(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "chatroom", chatroomID, "user", uid, "err", err)
	}
}

func (s *Server) chatReadLoop(ctx context.Context, c *wsConn, projectID, chatroomID string, uid int64) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f chatFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		switch f.Type {
		case TypeJoinRoom:
			s.handleJoinRoom(ctx, c, projectID, chatroomID)
		case TypeMessage:
			s.handleMessage(ctx, c, projectID, chatroomID, uid, f)
		case TypeTyping:
			s.chatSvc.Typing(ctx, chatroomID, f.UserID, f.IsTyping)
		case TypeAddReaction:
			s.handleAddReaction(ctx, c, projectID, chatroomID, uid, f)
		case TypeRemoveReaction:
			s.handleRemoveReaction(ctx, c, projectID, chatroomID, uid, f)
		default:
			// ignore
		}
	}
}

// handleJoinRoom subscribes the connection to the room group and
// replays the full history, one frame per message, terminated by a
// single history_complete.
func (s *Server) handleJoinRoom(ctx context.Context, c *wsConn, projectID, chatroomID string) {
	group := realtime.ChatGroup(chatroomID)

	// Subscribe before reading history: a message published while the
	// history query runs must still reach this connection, even if that
	// means it can arrive both live and in the replay.
	s.registry.Join(group, c)

	history, err := s.chatSvc.History(ctx, projectID, chatroomID)
	if err != nil {
		s.registry.Leave(group, c)
		if errors.Is(err, domain.ErrChatRoomNotFound) {
			_ = c.Send(errorEvent("Chatroom not found"))
			return
		}
		slog.Warn("ws history failed", "chatroom", chatroomID, "err", err)
		_ = c.Send(errorEvent("failed to load history"))
		return
	}

	for i := range history {
		_ = c.Send(realtime.Event{
			Type: TypeMessage,
			Payload: struct {
				Message service.ChatMessagePayload `json:"message"`
			}{Message: history[i]},
		})
	}
	_ = c.Send(realtime.Event{Type: TypeHistoryComplete})
}

func (s *Server) handleMessage(ctx context.Context, c *wsConn, projectID, chatroomID string, uid int64, f chatFrame) {
	_, err := s.chatSvc.SendMessage(ctx, projectID, chatroomID, uid, f.Content, f.ReplyTo)
	switch {
	case err == nil:
		// broadcast already happened inside the service
	case errors.Is(err, domain.ErrEmptyContent):
		// silent drop: no error frame, no broadcast
	case errors.Is(err, domain.ErrInvalidReply):
		_ = c.Send(errorEvent("Reply target not found in this chatroom"))
	case errors.Is(err, domain.ErrUnauthenticated):
		_ = c.Send(errorEvent("Authentication required"))
	case errors.Is(err, domain.ErrChatRoomNotFound):
		_ = c.Send(errorEvent("Chatroom not found"))
	default:
		slog.Warn("ws send message failed", "chatroom", chatroomID, "user", uid, "err", err)
		_ = c.Send(errorEvent("failed to send message"))
	}
}

func (s *Server) handleAddReaction(ctx context.Context, c *wsConn, projectID, chatroomID string, uid int64, f chatFrame) {
	res, err := s.chatSvc.ToggleReaction(ctx, projectID, chatroomID, f.MessageID, uid, f.Emoji)
	switch {
	case err == nil:
		// ack tells the requester which way the toggle went; the room
		// broadcast carries the event itself
		_ = c.Send(realtime.Event{Type: TypeReactionAck, Payload: res})
	case errors.Is(err, domain.ErrNotMember):
		_ = c.Send(errorEvent("You are not a member of this chat room"))
	case errors.Is(err, domain.ErrUnauthenticated):
		_ = c.Send(errorEvent("Authentication required"))
	case errors.Is(err, domain.ErrMessageNotFound), errors.Is(err, domain.ErrChatRoomNotFound):
		_ = c.Send(errorEvent("Message not found"))
	case errors.Is(err, domain.ErrEmptyEmoji):
		_ = c.Send(errorEvent("emoji is required"))
	default:
		slog.Warn("ws add reaction failed", "chatroom", chatroomID, "user", uid, "err", err)
		_ = c.Send(errorEvent("failed to add reaction"))
	}
}

func (s *Server) handleRemoveReaction(ctx context.Context, c *wsConn, projectID, chatroomID string, uid int64, f chatFrame) {
	err := s.chatSvc.RemoveReaction(ctx, projectID, chatroomID, f.MessageID, uid, f.Emoji)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnauthenticated):
		_ = c.Send(errorEvent("Authentication required"))
	case errors.Is(err, domain.ErrMessageNotFound), errors.Is(err, domain.ErrChatRoomNotFound):
		_ = c.Send(errorEvent("Message not found"))
	default:
		slog.Warn("ws remove reaction failed", "chatroom", chatroomID, "user", uid, "err", err)
		_ = c.Send(errorEvent("failed to remove reaction"))
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}
