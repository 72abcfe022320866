// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogin)
	r.Post("/", h.HandleLoginPost)
	return r
}

// TokenRoutes serves POST /api/token.
func TokenRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleToken)
	return r
}
