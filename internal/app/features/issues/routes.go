// internal/app/features/issues/routes.go
package issues

import (
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves the public list at /issues.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	return r
}

// APIRoutes mounts at /api/issues. Only citizens file reports.
func APIRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.ServeIssue)
	r.With(sm.RequireRole(models.RoleCitizen)).Post("/", h.HandleCreate)
	return r
}

// ReportRoutes serves the report form data at /report.
func ReportRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleCitizen))
	r.Get("/", h.ServeReportForm)
	return r
}

// StatusRoutes serves the report code lookup at /status.
func StatusRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeStatus)
	return r
}
