// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). Framework-level settings such
// as ports, TLS and log level live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name (default: playsafe-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie and session record lifetime

	// Bearer tokens for API clients; blank secret disables them
	JWTSecret string
	JWTTTL    time.Duration

	// Redis backs the shared report rate limiter; blank addr keeps it in memory
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ReportRateLimit  int
	ReportRateWindow time.Duration

	// RabbitMQ lifecycle events; blank URL discards events
	AMQPURL      string
	AMQPExchange string

	// Photo storage: "inline" or "s3"
	StorageType string
	S3Region    string
	S3Bucket    string
	S3Endpoint  string // optional, for S3-compatible providers
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
	S3Prefix    string
	PresignTTL  time.Duration

	// Audit logging modes: all, db, log, off
	AuditLogAuth  string
	AuditLogIssue string

	// Background workers
	SessionCleanupInterval time.Duration
	ReconcileInterval      time.Duration

	// Admin bootstrap (creates or promotes on startup)
	AdminEmail    string
	AdminPassword string
}
