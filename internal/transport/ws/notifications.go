package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/collab-service/internal/realtime"
	"github.com/cwrk-planet/collab-service/internal/service"
)

// HandleNotifications is the personal notification endpoint:
// GET /ws/notifications?access_token=...
//
// Unlike chat, an unresolvable identity is refused outright.
func (s *Server) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	uid, err := s.resolver.ResolveUserID(token)
	if err != nil {
		http.Error(w, "invalid access_token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	s.registry.Join(realtime.UserGroup(uid), c)

	if err := s.sendRecent(r.Context(), c, uid); err != nil {
		slog.Warn("ws recent notifications failed", "user", uid, "err", err)
	}

	go s.writeLoop(r.Context(), c)
	s.notificationReadLoop(r.Context(), c, uid)

	s.registry.Drop(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", uid, "err", err)
	}
}

func (s *Server) sendRecent(ctx context.Context, c *wsConn, uid int64) error {
	notifs, unread, err := s.notifSvc.Recent(ctx, uid)
	if err != nil {
		return err
	}

	return c.Send(realtime.Event{
		Type: TypeRecentNotifications,
		Payload: struct {
			Notifications []service.NotificationPayload `json:"notifications"`
			UnreadCount   int                           `json:"unread_count"`
		}{Notifications: notifs, UnreadCount: unread},
	})
}

func (s *Server) notificationReadLoop(ctx context.Context, c *wsConn, uid int64) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 16)
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
		var f notificationFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		switch f.Type {
		case TypeMarkRead:
			if f.NotificationID == 0 {
				continue
			}
			// not-found and not-yours are the same silent no-op; only
			// the refreshed unread count goes back
			unread, err := s.notifSvc.MarkRead(ctx, uid, f.NotificationID)
			if err != nil {
				slog.Warn("ws mark read failed", "user", uid, "err", err)
				continue
			}
			_ = c.Send(unreadCountEvent(unread))
		case TypeMarkAllRead:
			_, unread, err := s.notifSvc.MarkAllRead(ctx, uid)
			if err != nil {
				slog.Warn("ws mark all read failed", "user", uid, "err", err)
				continue
			}
			_ = c.Send(unreadCountEvent(unread))
		default:
			// ignore
		}
	}
}
