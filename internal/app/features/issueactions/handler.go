// internal/app/features/issueactions/handler.go
package issueactions

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/lifecycle"
	assignmentstore "github.com/dalemusser/playsafe/internal/app/store/assignments"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin and maintenance transition endpoints. Every
// action is a thin shell over lifecycle.Service.
type Handler struct {
	Svc         *lifecycle.Service
	Assignments *assignmentstore.Store
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, svc *lifecycle.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:         svc,
		Assignments: assignmentstore.New(db),
		ErrLog:      errLog,
		Log:         logger,
	}
}

type staffInput struct {
	StaffEmail string `json:"staff_email"`
}

type reasonInput struct {
	Reason string `json:"reason"`
}

type notesInput struct {
	Notes string `json:"notes"`
}

// action is one transition bound to its request.
type action func(ctx context.Context, actor lifecycle.Actor, id primitive.ObjectID) (models.Issue, error)

// run resolves the actor and issue id, decodes body when one was sent
// and runs act. The response is the updated issue.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, op string, body any, act action) {
	u, _ := auth.CurrentUser(r)
	actor, err := lifecycle.ActorFrom(u)
	if err != nil {
		h.ErrLog.Lifecycle(w, r, op, err)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Lifecycle(w, r, op, lifecycle.ErrNotFound)
		return
	}
	if body != nil && r.ContentLength != 0 {
		if err := httpjson.Decode(w, r, body); err != nil {
			h.ErrLog.LogBadRequest(w, r, "decode "+op+" body", err, err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	issue, err := act(ctx, actor, id)
	if err != nil {
		h.ErrLog.Lifecycle(w, r, op, err)
		return
	}
	h.Log.Info("issue transition",
		zap.String("op", op),
		zap.String("issue_id", issue.ID.Hex()),
		zap.String("status", issue.Status),
		zap.String("user_id", actor.ID.Hex()))
	httpjson.OK(w, issue)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var in staffInput
	h.run(w, r, "assign", &in, func(ctx context.Context, a lifecycle.Actor, id primitive.ObjectID) (models.Issue, error) {
		return h.Svc.Assign(ctx, a, id, in.StaffEmail)
	})
}

func (h *Handler) HandleReassign(w http.ResponseWriter, r *http.Request) {
	var in staffInput
	h.run(w, r, "reassign", &in, func(ctx context.Context, a lifecycle.Actor, id primitive.ObjectID) (models.Issue, error) {
		return h.Svc.Reassign(ctx, a, id, in.StaffEmail)
	})
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "approve", nil, h.Svc.Approve)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var in reasonInput
	h.run(w, r, "reject", &in, func(ctx context.Context, a lifecycle.Actor, id primitive.ObjectID) (models.Issue, error) {
		return h.Svc.Reject(ctx, a, id, in.Reason)
	})
}

func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var in notesInput
	h.run(w, r, "resolve", &in, func(ctx context.Context, a lifecycle.Actor, id primitive.ObjectID) (models.Issue, error) {
		return h.Svc.ResolveDirect(ctx, a, id, in.Notes)
	})
}

// ServeAssignments lists an issue's assignment history, oldest first.
func (h *Handler) ServeAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Issue not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Svc.Get(ctx, id); err != nil {
		h.ErrLog.Lifecycle(w, r, "assignments", err)
		return
	}
	list, err := h.Assignments.ListForIssue(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list assignments", err, "Could not load assignments.")
		return
	}
	httpjson.OK(w, map[string]any{"assignments": list})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Maintenance                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "start", nil, h.Svc.StartWork)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.CompleteInput
	h.run(w, r, "complete", &in, func(ctx context.Context, a lifecycle.Actor, id primitive.ObjectID) (models.Issue, error) {
		return h.Svc.CompleteWork(ctx, a, id, in)
	})
}
