// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves /dashboard, which only redirects.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
	})
	return r
}

// CitizenRoutes mounts at /citizen.
func CitizenRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleCitizen))
	r.Get("/", h.ServeCitizen)
	return r
}

// AdminRoutes mounts at /admin.
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeAdmin)
	return r
}

// MaintenanceRoutes mounts at /maintenance.
func MaintenanceRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleMaintenance))
	r.Get("/", h.ServeMaintenance)
	return r
}
