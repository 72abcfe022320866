// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	dashboardfeature "github.com/dalemusser/playsafe/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/playsafe/internal/app/features/errors"
	healthfeature "github.com/dalemusser/playsafe/internal/app/features/health"
	homefeature "github.com/dalemusser/playsafe/internal/app/features/home"
	issueactionsfeature "github.com/dalemusser/playsafe/internal/app/features/issueactions"
	issuesfeature "github.com/dalemusser/playsafe/internal/app/features/issues"
	loginfeature "github.com/dalemusser/playsafe/internal/app/features/login"
	logoutfeature "github.com/dalemusser/playsafe/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/playsafe/internal/app/features/notifications"
	photosfeature "github.com/dalemusser/playsafe/internal/app/features/photos"
	playgroundsfeature "github.com/dalemusser/playsafe/internal/app/features/playgrounds"
	registerfeature "github.com/dalemusser/playsafe/internal/app/features/register"
	stafffeature "github.com/dalemusser/playsafe/internal/app/features/staff"
	"github.com/dalemusser/playsafe/internal/app/lifecycle"
	"github.com/dalemusser/playsafe/internal/app/store/audit"
	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	userstore "github.com/dalemusser/playsafe/internal/app/store/users"
	"github.com/dalemusser/playsafe/internal/app/system/auditlog"
	"github.com/dalemusser/playsafe/internal/app/system/auth"
	"github.com/dalemusser/playsafe/internal/app/system/ratelimit"
	"github.com/dalemusser/playsafe/internal/app/system/routeguard"
	"github.com/dalemusser/playsafe/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for PlaySafe.
//
// Every request first resolves its session (cookie or bearer token), then
// passes the route guard. Role-specific groups add RequireRole on top.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessStore := sessions.New(db)

	// Fresh user data on each request: role changes and disabled accounts
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))
	sessionMgr.SetSessionVerifier(sessStore)
	if tokens := auth.NewTokenIssuer(appCfg.JWTSecret, appCfg.JWTTTL); tokens != nil {
		sessionMgr.SetTokenIssuer(tokens)
	}

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Issue: appCfg.AuditLogIssue,
	})
	errLog := errorsfeature.NewErrorLogger(logger)

	b := shared
	if b.photos == nil {
		b = buildBackends(appCfg, deps, logger)
	}
	svc := lifecycle.New(lifecycle.Deps{
		Client:    deps.MongoClient,
		DB:        db,
		Photos:    b.photos,
		Limiter:   b.reports,
		Publisher: b.publisher,
		Audit:     auditLog,
		Logger:    logger,
	})

	homeHandler := homefeature.NewHandler(db, logger)
	healthHandler := healthfeature.NewHandler(deps.MongoClient, sessStore, logger)
	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, auditLog, sessStore, ratelimit.NewLoginLimiter(), logger)
	registerHandler := registerfeature.NewHandler(db, sessionMgr, errLog, auditLog, sessStore, logger)
	logoutHandler := logoutfeature.NewHandler(sessionMgr, sessStore, auditLog, logger)
	dashboardHandler := dashboardfeature.NewHandler(db, errLog, logger)
	issuesHandler := issuesfeature.NewHandler(db, svc, errLog, logger)
	actionsHandler := issueactionsfeature.NewHandler(db, svc, errLog, logger)
	playgroundsHandler := playgroundsfeature.NewHandler(db, auditLog, errLog, logger)
	notificationsHandler := notificationsfeature.NewHandler(db, errLog, logger)
	staffHandler := stafffeature.NewHandler(db, auditLog, errLog, logger)
	photosHandler := photosfeature.NewHandler(b.photos, appCfg.PresignTTL, errLog, logger)

	r := chi.NewRouter()
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(routeguard.Guard)

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Public surface
	r.Mount("/", homefeature.Routes(homeHandler))
	r.Mount("/issues", issuesfeature.Routes(issuesHandler))
	r.Mount("/playgrounds", playgroundsfeature.Routes(playgroundsHandler))

	// Authentication
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Mount("/register", registerfeature.Routes(registerHandler))
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Signed-in pages
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))
	r.Mount("/citizen", dashboardfeature.CitizenRoutes(dashboardHandler, sessionMgr))
	r.Mount("/admin", dashboardfeature.AdminRoutes(dashboardHandler, sessionMgr))
	r.Mount("/maintenance", dashboardfeature.MaintenanceRoutes(dashboardHandler, sessionMgr))
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, sessionMgr))
	r.Mount("/report", issuesfeature.ReportRoutes(issuesHandler, sessionMgr))
	r.Mount("/status", issuesfeature.StatusRoutes(issuesHandler, sessionMgr))
	r.Mount("/playground", playgroundsfeature.DetailRoutes(playgroundsHandler))

	// JSON API
	r.Route("/api", func(api chi.Router) {
		api.Mount("/token", loginfeature.TokenRoutes(loginHandler))
		api.Mount("/issues", issuesfeature.APIRoutes(issuesHandler, sessionMgr))
		api.Mount("/notifications", notificationsfeature.APIRoutes(notificationsHandler, sessionMgr))
		api.Mount("/photos", photosfeature.Routes(photosHandler, sessionMgr))

		api.Route("/admin", func(ar chi.Router) {
			ar.Use(sessionMgr.RequireRole(models.RoleAdmin))
			ar.Mount("/issues", issueactionsfeature.AdminRoutes(actionsHandler))
			ar.Mount("/staff", stafffeature.AdminRoutes(staffHandler))
			ar.Mount("/playgrounds", playgroundsfeature.AdminRoutes(playgroundsHandler))
		})

		api.Route("/maintenance", func(mr chi.Router) {
			mr.Use(sessionMgr.RequireRole(models.RoleMaintenance))
			mr.Mount("/issues", issueactionsfeature.MaintenanceRoutes(actionsHandler))
		})
	})

	return r, nil
}
