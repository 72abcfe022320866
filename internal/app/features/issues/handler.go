// internal/app/features/issues/handler.go
package issues

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/features/shared/issueview"
	"github.com/dalemusser/playsafe/internal/app/lifecycle"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/photos"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// publicListLimit caps the community list.
const publicListLimit = 100

type Handler struct {
	DB          *mongo.Database
	Svc         *lifecycle.Service
	Issues      *issuestore.Store
	Playgrounds *playgroundstore.Store
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, svc *lifecycle.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Svc:         svc,
		Issues:      issuestore.New(db),
		Playgrounds: playgroundstore.New(db),
		ErrLog:      errLog,
		Log:         logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /issues – community list                                                |
*─────────────────────────────────────────────────────────────────────────────*/

type listVM struct {
	viewdata.BaseVM
	Status string             `json:"status,omitempty"`
	Issues []issueview.Public `json:"issues"`
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !models.IsValidStatus(status) {
		h.ErrLog.LogBadRequest(w, r, "bad status filter", nil, "Unknown status filter.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Issues.List(ctx, issuestore.ListFilter{Status: status, Limit: publicListLimit})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list issues", err, "Could not load issues.")
		return
	}

	httpjson.OK(w, listVM{
		BaseVM: viewdata.NewBaseVM(r, h.DB, "Community issues", "/"),
		Status: status,
		Issues: issueview.PublicList(list),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /report – form data                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type playgroundOption struct {
	ID      primitive.ObjectID `json:"id"`
	Name    string             `json:"name"`
	Address string             `json:"address"`
}

type reportFormVM struct {
	viewdata.BaseVM
	Categories  []string           `json:"categories"`
	Severities  []string           `json:"severities"`
	MaxPhotos   int                `json:"max_photos"`
	Playgrounds []playgroundOption `json:"playgrounds"`
	Selected    string             `json:"selected_playground,omitempty"`
}

func (h *Handler) ServeReportForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	pgs, err := h.Playgrounds.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list playgrounds", err, "Could not load playgrounds.")
		return
	}
	opts := make([]playgroundOption, 0, len(pgs))
	for _, pg := range pgs {
		opts = append(opts, playgroundOption{ID: pg.ID, Name: pg.Name, Address: pg.Address})
	}

	httpjson.OK(w, reportFormVM{
		BaseVM:      viewdata.NewBaseVM(r, h.DB, "Report an issue", "/citizen"),
		Categories:  models.Categories,
		Severities:  []string{models.SeverityLow, models.SeverityMedium, models.SeverityHigh},
		MaxPhotos:   photos.MaxReportPhotos,
		Playgrounds: opts,
		Selected:    r.URL.Query().Get("playground"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/issues – citizen report                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	actor, err := lifecycle.ActorFrom(u)
	if err != nil {
		h.ErrLog.Lifecycle(w, r, "report", err)
		return
	}

	var in lifecycle.ReportInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode report body", err, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	issue, err := h.Svc.Report(ctx, actor, in)
	if err != nil {
		h.ErrLog.Lifecycle(w, r, "report", err)
		return
	}
	h.Log.Info("issue reported",
		zap.String("issue_id", issue.ID.Hex()),
		zap.String("report_code", issue.ReportCode),
		zap.String("user_id", actor.ID.Hex()))

	httpjson.Write(w, http.StatusCreated, issue)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/issues/{id}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeIssue(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Issue not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	issue, err := h.Svc.Get(ctx, id)
	if err != nil {
		h.ErrLog.Lifecycle(w, r, "get", err)
		return
	}
	httpjson.OK(w, issueview.For(r, issue))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /status?code=PS-xxxxxx                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

type statusVM struct {
	viewdata.BaseVM
	Code   string `json:"code,omitempty"`
	Found  bool   `json:"found"`
	Result any    `json:"result,omitempty"`
}

func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	vm := statusVM{
		BaseVM: viewdata.NewBaseVM(r, h.DB, "Check report status", "/"),
		Code:   normalizeCode(r.URL.Query().Get("code")),
	}
	if vm.Code == "" {
		httpjson.OK(w, vm)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	issue, err := h.Issues.GetByReportCode(ctx, vm.Code)
	switch {
	case errors.Is(err, issuestore.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, "No report found with this code.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "lookup report code", err, "Could not look up this report.")
		return
	}

	vm.Found = true
	vm.Result = issueview.For(r, issue)
	httpjson.OK(w, vm)
}

// normalizeCode trims the input and upper-cases the "PS-" prefix.
func normalizeCode(raw string) string {
	code := strings.TrimSpace(raw)
	if len(code) >= 3 && strings.EqualFold(code[:3], "PS-") {
		code = "PS-" + code[3:]
	}
	return code
}
