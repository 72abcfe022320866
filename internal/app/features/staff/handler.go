// internal/app/features/staff/handler.go
package staff

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/auditlog"
	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"github.com/dalemusser/playsafe/internal/app/system/htmlsanitize"
	"github.com/dalemusser/playsafe/internal/app/system/httpjson"
	"github.com/dalemusser/playsafe/internal/app/system/inputval"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		AuditLog: auditLog,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// staffRow is the public shape of a staff account; no password hash.
type staffRow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func rowOf(u models.User) staffRow {
	return staffRow{ID: u.ID.Hex(), Name: u.FullName(), Email: u.Email, Role: u.Role}
}

// ServeList handles GET /api/admin/staff.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users, err := h.Users.ListActiveStaff(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list staff", err, "Could not load staff.")
		return
	}
	rows := make([]staffRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, rowOf(u))
	}
	httpjson.OK(w, map[string]any{"staff": rows})
}

type createInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (in createInput) problem() string {
	switch {
	case in.FirstName == "" || in.LastName == "":
		return "Please enter the full name."
	case !inputval.IsValidEmail(in.Email):
		return "Invalid email address."
	case in.Role != models.RoleMaintenance && in.Role != models.RoleAdmin:
		return "Role must be maintenance or admin."
	}
	return inputval.PasswordProblem(in.Password)
}

// HandleCreate handles POST /api/admin/staff. Role defaults to maintenance.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode staff body", err, err.Error())
		return
	}
	in.FirstName = htmlsanitize.PlainText(in.FirstName)
	in.LastName = htmlsanitize.PlainText(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = models.RoleMaintenance
	}
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
		Role:         in.Role,
		Status:       models.UserActive,
		PasswordHash: string(hash),
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		httpjson.Error(w, http.StatusConflict, "An account with this email already exists.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "create staff", err, "A server error occurred.")
		return
	}

	_, _, actorID, _ := authz.UserCtx(r)
	h.AuditLog.StaffCreated(ctx, r, actorID, u.ID, u.Role)
	h.Log.Info("staff account created",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role),
		zap.String("by", actorID.Hex()))

	httpjson.Write(w, http.StatusCreated, rowOf(u))
}
