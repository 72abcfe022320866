// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	"github.com/dalemusser/playsafe/internal/app/system/events"
	"github.com/dalemusser/playsafe/internal/app/system/photos"
	"github.com/dalemusser/playsafe/internal/app/system/ratelimit"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"github.com/dalemusser/playsafe/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// revokedSessionGrace keeps revoked session records around for audit lookups.
const revokedSessionGrace = 24 * time.Hour

type stopper interface{ Stop() }

// backends are built once in Startup and shared by BuildHandler and Shutdown.
type backends struct {
	photos    photos.Store
	publisher events.Publisher
	reports   ratelimit.Checker
	workers   []stopper
}

var shared backends

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from env", zap.Int("count", n))
	}
	shared = buildBackends(appCfg, deps, logger)

	db := deps.MongoDatabase
	cleanup := workers.NewSessionCleanup(sessions.New(db), logger, appCfg.SessionCleanupInterval, revokedSessionGrace)
	reconciler := workers.NewPlaygroundReconciler(playgroundstore.New(db), issuestore.New(db), logger, appCfg.ReconcileInterval)
	cleanup.Start()
	reconciler.Start()
	shared.workers = []stopper{cleanup, reconciler}
	return nil
}

// buildBackends picks photo storage, the event publisher and the report
// limiter from config. Optional backends degrade instead of failing.
func buildBackends(appCfg AppConfig, deps DBDeps, logger *zap.Logger) backends {
	var b backends

	if appCfg.StorageType == storageS3 {
		b.photos = photos.NewS3(photos.S3Config{
			Region:    appCfg.S3Region,
			Bucket:    appCfg.S3Bucket,
			Endpoint:  appCfg.S3Endpoint,
			AccessKey: appCfg.S3AccessKey,
			SecretKey: appCfg.S3SecretKey,
			PublicURL: appCfg.S3PublicURL,
			Prefix:    appCfg.S3Prefix,
		}, logger)
		logger.Info("photo storage: s3", zap.String("bucket", appCfg.S3Bucket))
	} else {
		b.photos = photos.Inline{}
		logger.Info("photo storage: inline")
	}

	b.publisher = events.Nop{}
	if appCfg.AMQPURL != "" {
		pub, err := events.NewRabbit(appCfg.AMQPURL, appCfg.AMQPExchange, logger)
		if err != nil {
			logger.Error("event broker unavailable; events will be dropped", zap.Error(err))
		} else {
			b.publisher = pub
		}
	}

	if deps.Redis != nil {
		b.reports = ratelimit.NewRedis(deps.Redis, "playsafe:report", appCfg.ReportRateLimit, appCfg.ReportRateWindow)
	} else {
		b.reports = ratelimit.New(appCfg.ReportRateLimit, appCfg.ReportRateWindow)
	}
	return b
}
