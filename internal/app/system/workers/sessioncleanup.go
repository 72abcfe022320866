// internal/app/system/workers/sessioncleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/playsafe/internal/app/store/sessions"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// SessionCleanup is a background worker that deletes expired and revoked
// session records.
type SessionCleanup struct {
	sessions     *sessions.Store
	log          *zap.Logger
	interval     time.Duration
	revokedGrace time.Duration
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// NewSessionCleanup creates a new session cleanup worker.
//
// Parameters:
//   - sessStore: the sessions store
//   - logger: zap logger for logging
//   - interval: how often to run cleanup (e.g., 15 minutes)
//   - revokedGrace: how long revoked records are kept for audit lookups
func NewSessionCleanup(sessStore *sessions.Store, logger *zap.Logger, interval, revokedGrace time.Duration) *SessionCleanup {
	return &SessionCleanup{
		sessions:     sessStore,
		log:          logger,
		interval:     interval,
		revokedGrace: revokedGrace,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *SessionCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("revoked_grace", w.revokedGrace))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *SessionCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("session cleanup worker stopped")
}

func (w *SessionCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Cleanup()
		}
	}
}

// Cleanup runs one pass and returns the number of records deleted.
func (w *SessionCleanup) Cleanup() int64 {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Batch(), w.log, "session cleanup")
	defer cancel()

	count, err := w.sessions.DeleteStale(ctx, w.revokedGrace)
	if err != nil {
		w.log.Error("failed to delete stale sessions", zap.Error(err))
		return 0
	}

	if count > 0 {
		w.log.Info("deleted stale sessions", zap.Int64("count", count))
	}
	return count
}
