// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves the inbox at /notifications.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	return r
}

// APIRoutes mounts under /api/notifications.
func APIRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/read-all", h.HandleMarkAllRead)
	r.Post("/{id}/read", h.HandleMarkRead)
	return r
}
