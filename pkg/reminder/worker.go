package reminder

import (
	"context"
	"log/slog"
	"time"
)

// Worker drives the sweep on a fixed interval for deployments without
// an external scheduler.
type Worker struct {
	sweeper  *Sweeper
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker. Intervals under a minute are clamped to
// avoid hammering the database when misconfigured.
func NewWorker(sweeper *Sweeper, interval time.Duration, logger *slog.Logger) *Worker {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Worker{sweeper: sweeper, interval: interval, logger: logger}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("reminder worker started", "interval", w.interval)

	if _, err := w.sweeper.Run(ctx); err != nil {
		w.logger.Error("reminder sweep", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.sweeper.Run(ctx); err != nil {
				w.logger.Error("reminder sweep", "error", err)
			}
		}
	}
}
