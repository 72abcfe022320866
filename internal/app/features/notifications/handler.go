// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	notificationstore "github.com/dalemusser/playsafe/internal/app/store/notifications"
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

const listLimit = 100

type Handler struct {
	DB            *mongo.Database
	Notifications *notificationstore.Store
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Notifications: notificationstore.New(db),
		ErrLog:        errLog,
		Log:           logger,
	}
}

type listVM struct {
	viewdata.BaseVM
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

// ServeList handles GET /notifications.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w, "Please sign in.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Notifications.ListForUser(ctx, uid, listLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list notifications", err, "Could not load notifications.")
		return
	}
	unread, err := h.Notifications.CountUnread(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count unread notifications", err, "Could not load notifications.")
		return
	}

	httpjson.OK(w, listVM{
		BaseVM:        viewdata.NewBaseVM(r, h.DB, "Notifications", authz.Home(r)),
		Notifications: list,
		Unread:        unread,
	})
}

// HandleMarkRead handles POST /api/notifications/{id}/read.
// A notification owned by someone else reads as not found.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w, "Please sign in.")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Notification not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	switch err := h.Notifications.MarkRead(ctx, uid, id); {
	case errors.Is(err, notificationstore.ErrNotFound):
		uierrors.NotFound(w, "Notification not found.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "mark notification read", err, "Could not update notification.")
		return
	}
	httpjson.OK(w, map[string]bool{"ok": true})
}

// HandleMarkAllRead handles POST /api/notifications/read-all.
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Unauthorized(w, "Please sign in.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "mark all notifications read", err, "Could not update notifications.")
		return
	}
	h.Log.Debug("notifications marked read", zap.String("user_id", uid.Hex()), zap.Int64("count", n))
	httpjson.OK(w, map[string]int64{"updated": n})
}
