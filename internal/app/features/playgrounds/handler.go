// internal/app/features/playgrounds/handler.go
package playgrounds

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/features/shared/issueview"
	"github.com/dalemusser/playsafe/internal/app/features/shared/nearby"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	"github.com/dalemusser/playsafe/internal/app/system/auditlog"
	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB          *mongo.Database
	Playgrounds *playgroundstore.Store
	Issues      *issuestore.Store
	AuditLog    *auditlog.Logger
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
	now         func() time.Time
}

func NewHandler(db *mongo.Database, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Playgrounds: playgroundstore.New(db),
		Issues:      issuestore.New(db),
		AuditLog:    auditLog,
		ErrLog:      errLog,
		Log:         logger,
		now:         time.Now,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /playgrounds?lat=&lng=                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

type listVM struct {
	viewdata.BaseVM
	HasOrigin   bool           `json:"has_origin"`
	Playgrounds []nearby.Entry `json:"playgrounds"`
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	pgs, err := h.Playgrounds.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list playgrounds", err, "Could not load playgrounds.")
		return
	}
	origin, ok := nearby.Origin(r)

	httpjson.OK(w, listVM{
		BaseVM:      viewdata.NewBaseVM(r, h.DB, "Playgrounds", "/"),
		HasOrigin:   ok,
		Playgrounds: nearby.Rank(origin, ok, pgs, 0),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /playground/{id}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type detailVM struct {
	viewdata.BaseVM
	Playground models.Playground `json:"playground"`
	Issues     []any             `json:"issues"`
	ReportURL  string            `json:"report_url"`
}

func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Playground not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	pg, err := h.Playgrounds.GetByID(ctx, id)
	switch {
	case errors.Is(err, playgroundstore.ErrNotFound):
		uierrors.NotFound(w, "Playground not found.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "load playground", err, "Could not load playground.")
		return
	}

	list, err := h.Issues.List(ctx, issuestore.ListFilter{PlaygroundID: &pg.ID})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list playground issues", err, "Could not load issues.")
		return
	}

	httpjson.OK(w, detailVM{
		BaseVM:     viewdata.NewBaseVM(r, h.DB, pg.Name, "/playgrounds"),
		Playground: pg,
		Issues:     issueview.ForList(r, list),
		ReportURL:  "/report?playground=" + pg.ID.Hex(),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/playgrounds/{id}/status                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type statusInput struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Playground not found.")
		return
	}
	var in statusInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode playground status", err, err.Error())
		return
	}
	status := strings.TrimSpace(in.Status)
	if !models.IsValidPlaygroundStatus(status) {
		httpjson.Error(w, http.StatusUnprocessableEntity, "Status must be Good, Attention or Urgent.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	pg, err := h.Playgrounds.SetStatus(ctx, id, status, h.now())
	switch {
	case errors.Is(err, playgroundstore.ErrNotFound):
		uierrors.NotFound(w, "Playground not found.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "set playground status", err, "Could not update playground.")
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.PlaygroundStatusSet(ctx, r, actorID, pg.ID, status)
	h.Log.Info("playground status set",
		zap.String("playground_id", pg.ID.Hex()),
		zap.String("status", status),
		zap.String("user_id", actorID.Hex()))

	httpjson.OK(w, pg)
}
