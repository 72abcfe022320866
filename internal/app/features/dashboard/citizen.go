// internal/app/features/dashboard/citizen.go
package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/playsafe/internal/app/features/shared/issueview"
	"github.com/dalemusser/playsafe/internal/app/features/shared/nearby"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.uber.org/zap"
)

type citizenVM struct {
	viewdata.BaseVM
	MyReports []models.Issue     `json:"my_reports"`
	Community []issueview.Public `json:"community"`
	Nearby    []nearby.Entry     `json:"nearby"`
	HasOrigin bool               `json:"has_origin"`
}

func (h *Handler) ServeCitizen(w http.ResponseWriter, r *http.Request) {
	_, uname, uid, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	mine, err := h.Issues.List(ctx, issuestore.ListFilter{ReporterUID: uid.Hex()})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list my reports", err, "Could not load your reports.")
		return
	}
	recent, err := h.Issues.List(ctx, issuestore.ListFilter{Limit: communityLimit})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list community issues", err, "Could not load recent issues.")
		return
	}
	pgs, err := h.Playgrounds.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list playgrounds", err, "Could not load playgrounds.")
		return
	}
	origin, hasOrigin := nearby.Origin(r)

	h.Log.Debug("citizen dashboard served", zap.String("user", uname), zap.Int("reports", len(mine)))

	httpjson.OK(w, citizenVM{
		BaseVM:    viewdata.NewBaseVM(r, h.DB, "My Dashboard", "/"),
		MyReports: mine,
		Community: issueview.PublicList(recent),
		Nearby:    nearby.Rank(origin, hasOrigin, pgs, nearbyLimit),
		HasOrigin: hasOrigin,
	})
}
