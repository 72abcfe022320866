package workers

import (
	"context"
	"sync"
	"time"

	issuestore "github.com/dalemusser/playsafe/internal/app/store/issues"
	playgroundstore "github.com/dalemusser/playsafe/internal/app/store/playgrounds"
	"github.com/dalemusser/playsafe/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// PlaygroundReconciler periodically rewrites every playground's derived
// active_issues count from the issues collection. Lifecycle transitions keep
// the count current; this catches drift from failed follow-ups and imports.
type PlaygroundReconciler struct {
	playgrounds *playgroundstore.Store
	issues      *issuestore.Store
	log         *zap.Logger
	interval    time.Duration
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewPlaygroundReconciler creates the worker.
func NewPlaygroundReconciler(pgs *playgroundstore.Store, issues *issuestore.Store, logger *zap.Logger, interval time.Duration) *PlaygroundReconciler {
	return &PlaygroundReconciler{
		playgrounds: pgs,
		issues:      issues,
		log:         logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *PlaygroundReconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("playground reconciler started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *PlaygroundReconciler) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("playground reconciler stopped")
}

func (w *PlaygroundReconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Batch(), w.log, "playground reconcile")
			if _, err := w.Reconcile(ctx); err != nil {
				w.log.Error("playground reconcile failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Reconcile runs one pass and returns how many playgrounds were checked.
func (w *PlaygroundReconciler) Reconcile(ctx context.Context) (int, error) {
	counts, err := w.issues.CountOpenByPlayground(ctx)
	if err != nil {
		return 0, err
	}
	pgs, err := w.playgrounds.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, pg := range pgs {
		if err := w.playgrounds.SetActiveIssues(ctx, pg.ID, counts[pg.ID]); err != nil {
			w.log.Warn("set active issues failed",
				zap.String("playground_id", pg.ID.Hex()), zap.Error(err))
		}
	}
	return len(pgs), nil
}
