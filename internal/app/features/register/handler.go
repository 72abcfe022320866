// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/auditlog"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/app/system/htmlsanitize"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/inputval"
	"github.com/dalemusser/playsafe/internal/app/system/ratelimit"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/app/system/viewdata"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const msgDuplicate = "An account with this email already exists."

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Users      *userstore.Store
	Sessions   *sessions.Store
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	auditLog *auditlog.Logger,
	sessStore *sessions.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Users:      userstore.New(db),
		Sessions:   sessStore,
	}
}

type registerInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// problem returns the first user-facing validation message, or "".
func (in registerInput) problem() string {
	switch {
	case in.FirstName == "" || in.LastName == "":
		return "Please enter your full name."
	case strings.TrimSpace(in.Email) == "":
		return "Please enter your email address."
	case !inputval.IsValidEmail(in.Email):
		return "Invalid email address."
	}
	if msg := inputval.PasswordProblem(in.Password); msg != "" {
		return msg
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return "Passwords do not match."
	}
	return ""
}

func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	httpjson.OK(w, struct {
		viewdata.BaseVM
		MinPasswordLen int `json:"min_password_len"`
	}{
		BaseVM:         viewdata.NewBaseVM(r, h.DB, "Create account", "/login"),
		MinPasswordLen: inputval.MinPasswordLen,
	})
}

// HandleRegisterPost creates a citizen account and signs it in.
// Self-registration never grants staff roles.
func (h *Handler) HandleRegisterPost(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode register body", err, err.Error())
		return
	}
	in.FirstName = htmlsanitize.PlainText(in.FirstName)
	in.LastName = htmlsanitize.PlainText(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	if msg := in.problem(); msg != "" {
		httpjson.Error(w, http.StatusUnprocessableEntity, msg)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password", err, "A server error occurred.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         models.RoleCitizen,
		Status:       models.UserActive,
		PasswordHash: string(hash),
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		httpjson.Error(w, http.StatusConflict, msgDuplicate)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "create user", err, "A server error occurred.")
		return
	}
	h.AuditLog.Registered(ctx, r, u.ID, u.Email)
	h.Log.Info("citizen registered", zap.String("user_id", u.ID.Hex()))

	sess, err := h.Sessions.Create(ctx, u.ID, ratelimit.ClientIP(r), r.UserAgent(), h.SessionMgr.MaxAge())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create session record", err, "Account created. Please sign in.")
		return
	}
	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex(), sess.ID.Hex()); err != nil {
		h.ErrLog.LogServerError(w, r, "save session cookie", err, "Account created. Please sign in.")
		return
	}

	httpjson.Write(w, http.StatusCreated, map[string]string{
		"id":       u.ID.Hex(),
		"redirect": models.RoleHome(u.Role),
	})
}
