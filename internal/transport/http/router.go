package http

import (
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/collab-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/collab-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, resolver httpmw.TokenResolver, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// WS endpoints carry their token in the query string; the chat one
	// tolerates anonymous connects, so no auth middleware here
	r.Get("/ws/projects/{project_id}/chat/{chatroom_id}", wsServer.HandleChat)
	r.Get("/ws/notifications", wsServer.HandleNotifications)

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmw.Auth(resolver))
		api.Use(middlewareChi.Timeout(30 * time.Second))

		api.Route("/projects/{project_id}/chatrooms", func(cr chi.Router) {
			cr.Get("/", h.ListChatRooms)
			cr.Post("/", h.CreateChatRoom)

			cr.Route("/{chatroom_id}", func(rr chi.Router) {
				rr.Delete("/", h.DeleteChatRoom)
				rr.Get("/messages", h.ListMessages)
				rr.Post("/messages", h.CreateMessage)
				rr.Post("/messages/{message_id}/reactions", h.AddReaction)
				rr.Delete("/messages/{message_id}/reactions/{emoji}", h.RemoveReaction)
			})
		})

		api.Route("/notifications", func(nr chi.Router) {
			nr.Get("/", h.ListNotifications)
			nr.Patch("/{id}/mark_read", h.MarkNotificationRead)
			nr.Post("/mark_all_read", h.MarkAllNotificationsRead)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
