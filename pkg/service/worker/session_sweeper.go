package worker

import (
	"context"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// SessionSweeper periodically deletes sessions that can no longer be used: those past their
// absolute lifetime and those whose token refresh failed after expiry. It never refreshes
// tokens.
//
// Architecture assumptions:
// - Deletion is idempotent, so several server instances may sweep concurrently
type SessionSweeper struct {
	repo     interfaces.Repository
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SessionSweeperOption configures SessionSweeper
type SessionSweeperOption func(*SessionSweeper)

// WithSweeperClock replaces time.Now
func WithSweeperClock(now func() time.Time) SessionSweeperOption {
	return func(w *SessionSweeper) {
		w.now = now
	}
}

// NewSessionSweeper creates a new worker sweeping every interval
func NewSessionSweeper(repo interfaces.Repository, interval time.Duration, opts ...SessionSweeperOption) *SessionSweeper {
	w := &SessionSweeper{
		repo:     repo,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background sweep loop without blocking server startup
func (w *SessionSweeper) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("sweep interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Session sweeper starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *SessionSweeper) Stop() {
	logging.Default().Info("Session sweeper stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Session sweeper stopped")
}

func (w *SessionSweeper) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.Sweep(ctx); err != nil {
		logging.Default().Error("Initial session sweep failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				logging.Default().Error("Session sweep failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Session sweeper context cancelled")
			return
		}
	}
}

// Sweep performs a single sweep cycle and returns the number of deleted sessions
func (w *SessionSweeper) Sweep(ctx context.Context) (int, error) {
	startTime := w.now()

	deleted, err := w.repo.Session().DeleteExpired(ctx, startTime)
	if err != nil {
		return deleted, goerr.Wrap(err, "failed to delete expired sessions", goerr.V("deleted", deleted))
	}

	if deleted > 0 {
		logging.Default().Info("Session sweep completed",
			"deleted", deleted,
			"duration", time.Since(startTime).String())
	}

	return deleted, nil
}
