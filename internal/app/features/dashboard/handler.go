// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/playsafe/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/playsafe/internal/app/store/assignments"
	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Dashboard list sizes.
const (
	communityLimit        = 20
	nearbyLimit           = 5
	recentlyApprovedLimit = 5
	recentAssignLimit     = 10
)

type Handler struct {
	DB          *mongo.Database
	Issues      *issuestore.Store
	Assignments *assignmentstore.Store
	Users       *userstore.Store
	Playgrounds *playgroundstore.Store
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
	now         func() time.Time
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Issues:      issuestore.New(db),
		Assignments: assignmentstore.New(db),
		Users:       userstore.New(db),
		Playgrounds: playgroundstore.New(db),
		ErrLog:      errLog,
		Log:         logger,
		now:         time.Now,
	}
}

// ServeDashboard sends the user to their role's home page.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := authz.UserCtx(r); !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	dest := authz.Home(r)
	if dest == "/dashboard" {
		// role without a home of its own
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}
