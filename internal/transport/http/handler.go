package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cwrk-planet/collab-service/internal/domain"
	"github.com/cwrk-planet/collab-service/internal/postgres"
	"github.com/cwrk-planet/collab-service/internal/service"
	httpmw "github.com/cwrk-planet/collab-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	roomSvc  *service.RoomService
	chatSvc  *service.ChatService
	notifSvc *service.NotificationService
	validate *validator.Validate
}

func NewHandler(room *service.RoomService, chat *service.ChatService, notif *service.NotificationService) *Handler {
	return &Handler{
		roomSvc:  room,
		chatSvc:  chat,
		notifSvc: notif,
		validate: validator.New(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain sentinels to statuses; everything unexpected is
// a 500.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	case errors.Is(err, domain.ErrNotMember):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "you are not a member"})
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrChatRoomNotFound),
		errors.Is(err, domain.ErrMessageNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidMembers),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrEmptyEmoji),
		errors.Is(err, domain.ErrInvalidReply),
		errors.Is(err, postgres.ErrInvalidPage):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		slog.Error("handler error", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// POST /api/projects/{project_id}/chatrooms
func (h *Handler) CreateChatRoom(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	uid := httpmw.UserIDFromCtx(r.Context())

	var req CreateChatRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "member_ids must be a non-empty list"})
		return
	}

	room, err := h.roomSvc.CreateChatRoom(r.Context(), projectID, uid, req.Name, req.MemberIDs)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ChatRoomItem{
		ChatRoomID: room.ID,
		ProjectID:  room.ProjectID,
		Name:       room.Name,
		Members:    req.MemberIDs,
		CreatedAt:  room.CreatedAt,
	})
}

// GET /api/projects/{project_id}/chatrooms
func (h *Handler) ListChatRooms(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	uid := httpmw.UserIDFromCtx(r.Context())

	rooms, err := h.roomSvc.ListChatRooms(r.Context(), projectID, uid)
	if err != nil {
		writeErr(w, err)
		return
	}

	ids := make([]string, 0, len(rooms))
	for _, rm := range rooms {
		ids = append(ids, rm.ID)
	}
	members, err := h.roomSvc.MembersByRooms(r.Context(), ids)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := ChatRoomsResponse{ChatRooms: make([]ChatRoomItem, 0, len(rooms))}
	for _, rm := range rooms {
		m := members[rm.ID]
		if m == nil {
			m = []int64{}
		}
		resp.ChatRooms = append(resp.ChatRooms, ChatRoomItem{
			ChatRoomID: rm.ID,
			ProjectID:  rm.ProjectID,
			Name:       rm.Name,
			Members:    m,
			CreatedAt:  rm.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// DELETE /api/projects/{project_id}/chatrooms/{chatroom_id}
func (h *Handler) DeleteChatRoom(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	chatroomID := chi.URLParam(r, "chatroom_id")
	uid := httpmw.UserIDFromCtx(r.Context())

	if err := h.roomSvc.DeleteChatRoom(r.Context(), projectID, chatroomID, uid); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/projects/{project_id}/chatrooms/{chatroom_id}/messages?page=&per_page=
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	chatroomID := chi.URLParam(r, "chatroom_id")
	uid := httpmw.UserIDFromCtx(r.Context())

	page, pageSet, err := intQuery(r, "page")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "page and per_page must be integers"})
		return
	}
	perPage, perPageSet, err := intQuery(r, "per_page")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "page and per_page must be integers"})
		return
	}
	// An explicit zero is a client error; only an absent parameter
	// takes the default.
	if (pageSet && page < 1) || (perPageSet && perPage < 1) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "page and per_page must be greater than zero"})
		return
	}

	p, err := postgres.NewPage(page, perPage)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "page and per_page must be greater than zero"})
		return
	}

	msgs, err := h.chatSvc.ListMessages(r.Context(), projectID, chatroomID, uid, p)
	if err != nil {
		writeErr(w, err)
		return
	}
	if msgs == nil {
		msgs = []service.ChatMessagePayload{}
	}

	writeJSON(w, http.StatusOK, MessagesResponse{
		Messages: msgs,
		Page:     p.Page,
		PerPage:  p.PerPage,
	})
}

// POST /api/projects/{project_id}/chatrooms/{chatroom_id}/messages
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	chatroomID := chi.URLParam(r, "chatroom_id")
	uid := httpmw.UserIDFromCtx(r.Context())

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "content is required"})
		return
	}

	msg, err := h.chatSvc.SendMessage(r.Context(), projectID, chatroomID, uid, req.Content, req.ReplyToID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// POST /api/projects/{project_id}/chatrooms/{chatroom_id}/messages/{message_id}/reactions
//
// Toggle: 201 when the reaction was added, 200 when the identical
// existing one was removed; the body says which in either case.
func (h *Handler) AddReaction(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	chatroomID := chi.URLParam(r, "chatroom_id")
	messageID := chi.URLParam(r, "message_id")
	uid := httpmw.UserIDFromCtx(r.Context())

	var req AddReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "emoji is required"})
		return
	}

	res, err := h.chatSvc.ToggleReaction(r.Context(), projectID, chatroomID, messageID, uid, req.Emoji)
	if err != nil {
		writeErr(w, err)
		return
	}

	status := http.StatusCreated
	if res.Toggled == "removed" {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// DELETE /api/projects/{project_id}/chatrooms/{chatroom_id}/messages/{message_id}/reactions/{emoji}
func (h *Handler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	chatroomID := chi.URLParam(r, "chatroom_id")
	messageID := chi.URLParam(r, "message_id")
	uid := httpmw.UserIDFromCtx(r.Context())

	emoji := chi.URLParam(r, "emoji")
	if unescaped, err := url.PathUnescape(emoji); err == nil {
		emoji = unescaped
	}

	if err := h.chatSvc.RemoveReaction(r.Context(), projectID, chatroomID, messageID, uid, emoji); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	uid := httpmw.UserIDFromCtx(r.Context())

	notifs, err := h.notifSvc.List(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	if notifs == nil {
		notifs = []service.NotificationPayload{}
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: notifs})
}

// PATCH /api/notifications/{id}/mark_read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	uid := httpmw.UserIDFromCtx(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Notification not found"})
		return
	}

	n, err := h.notifSvc.MarkReadStrict(r.Context(), uid, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Notification not found"})
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// POST /api/notifications/mark_all_read
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	uid := httpmw.UserIDFromCtx(r.Context())

	updated, _, err := h.notifSvc.MarkAllRead(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkAllReadResponse{UpdatedCount: updated})
}

// intQuery parses an integer query parameter and reports whether it
// was present at all.
func intQuery(r *http.Request, key string) (int, bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(s)
	return v, true, err
}
