// internal/app/features/dashboard/admin.go
package dashboard

import (
	"context"
	"net/http"

	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	metricsstore "github.com/dalemusser/playsafe/internal/app/store/metrics"
	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.uber.org/zap"
)

type adminVM struct {
	viewdata.BaseVM
	Stats             metricsstore.AdminStats `json:"stats"`
	Pending           []models.Issue          `json:"pending"`
	AwaitingApproval  []models.Issue          `json:"awaiting_approval"`
	RecentlyApproved  []models.Issue          `json:"recently_approved"`
	Staff             []models.User           `json:"staff"`
	RecentAssignments []models.Assignment     `json:"recent_assignments"`
	Playgrounds       []models.Playground     `json:"playgrounds"`
}

func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	_, uname, _, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	vm := adminVM{
		BaseVM: viewdata.NewBaseVM(r, h.DB, "Admin Dashboard", "/"),
		Stats:  metricsstore.FetchAdminStats(ctx, h.DB, h.now()),
	}

	var err error
	if vm.Pending, err = h.Issues.List(ctx, issuestore.ListFilter{Status: models.StatusPending}); err != nil {
		h.ErrLog.LogServerError(w, r, "list pending issues", err, "Could not load pending issues.")
		return
	}
	if vm.AwaitingApproval, err = h.Issues.ListAwaitingApproval(ctx); err != nil {
		h.ErrLog.LogServerError(w, r, "list awaiting approval", err, "Could not load issues awaiting approval.")
		return
	}
	if vm.RecentlyApproved, err = h.Issues.ListRecentlyApproved(ctx, recentlyApprovedLimit); err != nil {
		h.ErrLog.LogServerError(w, r, "list recently approved", err, "Could not load approved issues.")
		return
	}
	if vm.Staff, err = h.Users.ListActiveStaff(ctx); err != nil {
		h.ErrLog.LogServerError(w, r, "list staff", err, "Could not load staff.")
		return
	}
	if vm.RecentAssignments, err = h.Assignments.ListRecent(ctx, recentAssignLimit); err != nil {
		h.ErrLog.LogServerError(w, r, "list assignments", err, "Could not load assignments.")
		return
	}
	if vm.Playgrounds, err = h.Playgrounds.List(ctx); err != nil {
		h.ErrLog.LogServerError(w, r, "list playgrounds", err, "Could not load playgrounds.")
		return
	}

	h.Log.Debug("admin dashboard served", zap.String("user", uname))
	httpjson.OK(w, vm)
}
