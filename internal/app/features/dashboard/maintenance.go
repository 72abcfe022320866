// internal/app/features/dashboard/maintenance.go
package dashboard

import (
	"context"
	"net/http"

	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
)

type maintenanceVM struct {
	viewdata.BaseVM
	Issues []models.Issue   `json:"issues"`
	Counts map[string]int64 `json:"counts"`
}

func (h *Handler) ServeMaintenance(w http.ResponseWriter, r *http.Request) {
	email := authz.UserEmail(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	mine, err := h.Issues.List(ctx, issuestore.ListFilter{AssignedTo: email})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list assigned issues", err, "Could not load your work.")
		return
	}
	counts, err := h.Issues.CountByStatus(ctx, email)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count assigned issues", err, "Could not load your work.")
		return
	}

	httpjson.OK(w, maintenanceVM{
		BaseVM: viewdata.NewBaseVM(r, h.DB, "Maintenance Dashboard", "/"),
		Issues: mine,
		Counts: counts,
	})
}
