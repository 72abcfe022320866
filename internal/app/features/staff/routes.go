// internal/app/features/staff/routes.go
package staff

import "github.com/go-chi/chi/v5"

// AdminRoutes mounts under /api/admin/staff behind the admin role.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	return r
}
