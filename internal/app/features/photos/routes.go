// internal/app/features/photos/routes.go
package photos

import (
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/photos for any signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/presign", h.HandlePresign)
	return r
}
