// internal/app/features/issueactions/routes.go
package issueactions

import "github.com/go-chi/chi/v5"

// AdminRoutes mounts under /api/admin/issues behind the admin role.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}/assignments", h.ServeAssignments)
	r.Post("/{id}/assign", h.HandleAssign)
	r.Post("/{id}/reassign", h.HandleReassign)
	r.Post("/{id}/approve", h.HandleApprove)
	r.Post("/{id}/reject", h.HandleReject)
	r.Post("/{id}/resolve", h.HandleResolve)
	return r
}

// MaintenanceRoutes mounts under /api/maintenance/issues behind the
// maintenance role.
func MaintenanceRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/start", h.HandleStart)
	r.Post("/{id}/complete", h.HandleComplete)
	return r
}
