// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/store/audit"
	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/auditlog"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/inputval"
	"github.com/dalemusser/playsafe/internal/app/system/ratelimit"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// User-facing login failures.
const (
	msgNoAccount   = "No account found with this email address."
	msgBadPassword = "Incorrect password."
	msgBadEmail    = "Invalid email address."
	msgDisabled    = "This account has been disabled."
	msgServerError = "A server error occurred."
	msgTokensOff   = "API tokens are not enabled."
)

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Users      *userstore.Store
	Sessions   *sessions.Store
	Limiter    *ratelimit.LoginLimiter
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	auditLog *auditlog.Logger,
	sessStore *sessions.Store,
	limiter *ratelimit.LoginLimiter,
	logger *zap.Logger,
) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter()
	}
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Users:      userstore.New(db),
		Sessions:   sessStore,
		Limiter:    limiter,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginVM struct {
	viewdata.BaseVM
	ReturnURL string `json:"return_url"`
}

// loginFailure carries the status and message for a refused login.
type loginFailure struct {
	status int
	msg    string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	httpjson.OK(w, loginVM{
		BaseVM:    viewdata.NewBaseVM(r, h.DB, "Sign in", "/"),
		ReturnURL: r.URL.Query().Get("redirect"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode login body", err, err.Error())
		return
	}

	u, fail := h.authenticate(r, in)
	if fail != nil {
		httpjson.Error(w, fail.status, fail.msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess, err := h.Sessions.Create(ctx, u.ID, ratelimit.ClientIP(r), r.UserAgent(), h.SessionMgr.MaxAge())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create session record", err, msgServerError)
		return
	}
	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex(), sess.ID.Hex()); err != nil {
		h.ErrLog.LogServerError(w, r, "save session cookie", err, msgServerError)
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))

	dest := urlutil.SafeReturn(r.URL.Query().Get("redirect"), "", models.RoleHome(u.Role))
	httpjson.OK(w, map[string]string{"redirect": dest, "role": u.Role})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/token                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	tokens := h.SessionMgr.Tokens()
	if tokens == nil {
		httpjson.Error(w, http.StatusNotImplemented, msgTokensOff)
		return
	}

	var in credentials
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode token body", err, err.Error())
		return
	}

	u, fail := h.authenticate(r, in)
	if fail != nil {
		httpjson.Error(w, fail.status, fail.msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sess, err := h.Sessions.Create(ctx, u.ID, ratelimit.ClientIP(r), r.UserAgent(), tokens.TTL())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create token session", err, msgServerError)
		return
	}
	tok, exp, err := tokens.Issue(u.ID.Hex(), sess.ID.Hex())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "sign token", err, msgServerError)
		return
	}
	h.AuditLog.TokenIssued(ctx, r, u.ID)
	httpjson.OK(w, tokenResponse{Token: tok, ExpiresAt: exp.UTC()})
}

// authenticate runs the rate limit and credential checks shared by cookie
// and token login.
func (h *Handler) authenticate(r *http.Request, in credentials) (*models.User, *loginFailure) {
	email := strings.TrimSpace(in.Email)

	if ok, msg := h.Limiter.Check(r, email); !ok {
		h.AuditLog.LoginFailed(r.Context(), r, audit.EventLoginFailedRateLimit, nil, email, "rate limited")
		return nil, &loginFailure{http.StatusTooManyRequests, msg}
	}
	if !inputval.IsValidEmail(email) {
		return nil, &loginFailure{http.StatusUnprocessableEntity, msgBadEmail}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, nil, email, "user not found")
		return nil, &loginFailure{http.StatusUnauthorized, msgNoAccount}
	case err != nil:
		h.Log.Error("DB find user", zap.Error(err))
		return nil, &loginFailure{http.StatusInternalServerError, msgServerError}
	}

	if u.Status == models.UserDisabled {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, &u.ID, email, "user disabled")
		return nil, &loginFailure{http.StatusForbidden, msgDisabled}
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, &u.ID, email, "wrong password")
		return nil, &loginFailure{http.StatusUnauthorized, msgBadPassword}
	}

	h.Limiter.ResetEmail(email)
	return u, nil
}
