// internal/app/features/playgrounds/routes.go
package playgrounds

import "github.com/go-chi/chi/v5"

// Routes serves the directory at /playgrounds.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	return r
}

// DetailRoutes serves /playground/{id}.
func DetailRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.ServeDetail)
	return r
}

// AdminRoutes mounts under /api/admin/playgrounds behind the admin role.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/status", h.HandleSetStatus)
	return r
}
