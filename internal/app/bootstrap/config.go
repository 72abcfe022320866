// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/playsafe/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	storageInline = "inline"
	storageS3     = "s3"

	minProdSessionKey = 32
)

// appConfigKeys defines the configuration keys for PlaySafe.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: PLAYSAFE_MONGO_URI, PLAYSAFE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "playsafe", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "playsafe-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session lifetime (e.g., 168h)"},

	// API bearer tokens
	{Name: "jwt_secret", Default: "", Desc: "HS256 secret for API bearer tokens (blank disables /api/token)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token lifetime"},

	// Redis (shared report rate limit)
	{Name: "redis_addr", Default: "", Desc: "Redis address host:port (blank keeps the limiter in memory)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "report_rate_limit", Default: 10, Desc: "Issue reports allowed per citizen per window"},
	{Name: "report_rate_window", Default: "1h", Desc: "Report rate limit window"},

	// RabbitMQ lifecycle events
	{Name: "amqp_url", Default: "", Desc: "AMQP URL for lifecycle events (blank discards events)"},
	{Name: "amqp_exchange", Default: "playsafe.events", Desc: "Topic exchange for lifecycle events"},

	// Photo storage
	{Name: "storage_type", Default: storageInline, Desc: "Photo storage: 'inline' or 's3'"},
	{Name: "s3_region", Default: "", Desc: "S3 region"},
	{Name: "s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "s3_endpoint", Default: "", Desc: "S3-compatible endpoint (blank for AWS)"},
	{Name: "s3_access_key", Default: "", Desc: "S3 access key"},
	{Name: "s3_secret_key", Default: "", Desc: "S3 secret key"},
	{Name: "s3_public_url", Default: "", Desc: "Base URL photos are served from"},
	{Name: "s3_prefix", Default: "photos/", Desc: "S3 key prefix"},
	{Name: "presign_ttl", Default: "10m", Desc: "Presigned upload URL lifetime"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: auditlog.ModeAll, Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_issue", Default: auditlog.ModeAll, Desc: "Issue event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Workers
	{Name: "session_cleanup_interval", Default: "1h", Desc: "How often expired or revoked sessions are purged"},
	{Name: "reconcile_interval", Default: "15m", Desc: "How often playground active_issues counts are recomputed"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of an admin to create or promote on startup"},
	{Name: "admin_password", Default: "", Desc: "Password for a newly created bootstrap admin"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// PLAYSAFE_* environment variables and flags, merged with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "PLAYSAFE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 7*24*time.Hour),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", 24*time.Hour),

		RedisAddr:        appValues.String("redis_addr"),
		RedisPassword:    appValues.String("redis_password"),
		RedisDB:          appValues.Int("redis_db"),
		ReportRateLimit:  appValues.Int("report_rate_limit"),
		ReportRateWindow: appValues.Duration("report_rate_window", time.Hour),

		AMQPURL:      appValues.String("amqp_url"),
		AMQPExchange: appValues.String("amqp_exchange"),

		StorageType: strings.ToLower(appValues.String("storage_type")),
		S3Region:    appValues.String("s3_region"),
		S3Bucket:    appValues.String("s3_bucket"),
		S3Endpoint:  appValues.String("s3_endpoint"),
		S3AccessKey: appValues.String("s3_access_key"),
		S3SecretKey: appValues.String("s3_secret_key"),
		S3PublicURL: appValues.String("s3_public_url"),
		S3Prefix:    appValues.String("s3_prefix"),
		PresignTTL:  appValues.Duration("presign_ttl", 10*time.Minute),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogIssue: appValues.String("audit_log_issue"),

		SessionCleanupInterval: appValues.Duration("session_cleanup_interval", time.Hour),
		ReconcileInterval:      appValues.Duration("reconcile_interval", 15*time.Minute),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(appCfg, coreCfg.Env == "prod")
}

// validateAppConfig holds the checks that don't need WAFFLE.
func validateAppConfig(appCfg AppConfig, prod bool) error {
	if prod && len(appCfg.SessionKey) < minProdSessionKey {
		return fmt.Errorf("session_key must be at least %d characters in prod", minProdSessionKey)
	}

	switch appCfg.StorageType {
	case storageInline:
	case storageS3:
		var missing []string
		if appCfg.S3Bucket == "" {
			missing = append(missing, "s3_bucket")
		}
		if appCfg.S3Region == "" {
			missing = append(missing, "s3_region")
		}
		if appCfg.S3PublicURL == "" {
			missing = append(missing, "s3_public_url")
		}
		if len(missing) > 0 {
			return fmt.Errorf("storage_type=s3 requires %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want %q or %q)", appCfg.StorageType, storageInline, storageS3)
	}

	for key, mode := range map[string]string{
		"audit_log_auth":  appCfg.AuditLogAuth,
		"audit_log_issue": appCfg.AuditLogIssue,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s: unknown mode %q", key, mode)
		}
	}

	if appCfg.ReportRateLimit <= 0 {
		return fmt.Errorf("report_rate_limit must be positive")
	}
	return nil
}
