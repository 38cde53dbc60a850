package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mtlprog/wealth/internal/refresh"
)

// Refresher runs one refresh cycle.
type Refresher interface {
	Run(ctx context.Context, now time.Time) (refresh.Result, error)
}

// AfterRefreshHook is called after each successful refresh cycle.
type AfterRefreshHook interface {
	Export(ctx context.Context, res refresh.Result) error
}

// RefreshWorker periodically re-runs the refresh pipeline.
type RefreshWorker struct {
	refresher Refresher
	interval  time.Duration
	hook      AfterRefreshHook // optional
	now       func() time.Time
}

// NewRefreshWorker creates a new RefreshWorker with an optional post-refresh hook.
func NewRefreshWorker(refresher Refresher, interval time.Duration, hook AfterRefreshHook) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		interval:  interval,
		hook:      hook,
		now:       time.Now,
	}
}

// runHook calls the post-refresh hook if one is configured.
func (w *RefreshWorker) runHook(ctx context.Context, res refresh.Result) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, res); err != nil {
		slog.Error("RefreshWorker: export hook failed", "error", err)
	} else {
		slog.Info("RefreshWorker: export hook completed")
	}
}

func (w *RefreshWorker) tick(ctx context.Context) {
	res, err := w.refresher.Run(ctx, w.now())
	switch {
	case errors.Is(err, refresh.ErrCycleInFlight):
		// a manual refresh is still running; the next tick picks up its state
		slog.Info("RefreshWorker: cycle already in flight, skipping tick")
	case err != nil:
		slog.Error("RefreshWorker: refresh failed", "error", err)
	default:
		slog.Info("RefreshWorker: refresh completed",
			"net_worth", res.Totals.NetWorth.StringFixed(2),
			"warnings", len(res.Warnings),
			"events", len(res.Events),
		)
		w.runHook(ctx, res)
	}
}

// Run starts the refresh loop. It blocks until the context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("RefreshWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RefreshWorker: shutting down")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}
