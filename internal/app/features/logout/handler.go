// internal/app/features/logout/handler.go
package logout

import (
	"context"
	"net/http"

	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	"github.com/dalemusser/playsafe/internal/app/system/auditlog"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Sessions   *sessions.Store
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, sessStore *sessions.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Sessions:   sessStore,
		AuditLog:   auditLog,
	}
}

// ServeLogout handles GET /logout. The cookie is expired and the server
// record revoked, so a copied cookie or an issued bearer token stops
// working too.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	sid, err := h.SessionMgr.SignOut(w, r)
	if err != nil {
		h.Log.Warn("session decode failed during logout", zap.Error(err))
	}
	// Bearer callers have no cookie; their token names the session.
	if u, ok := auth.CurrentUser(r); ok && sid == "" {
		sid = u.SessionID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if h.Sessions != nil && sid != "" {
		if oid, err := primitive.ObjectIDFromHex(sid); err == nil {
			if err := h.Sessions.Revoke(ctx, oid); err != nil {
				h.Log.Error("logout: revoke session", zap.String("session_id", sid), zap.Error(err))
			}
		}
	}

	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.Logout(ctx, r, u.ID)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
