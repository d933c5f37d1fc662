package spawn

import (
	"context"
	"log/slog"
	"time"
)

// Runner drives the engine's per-tick entry point from a wall-clock ticker.
// The host adapter's step callback advances world time first, then the
// engine runs one spawn cycle check per spawner.
type Runner struct {
	engine *Engine
	step   func() // advances the host world one tick, may be nil
	ticker *time.Ticker
	stopCh chan struct{}
}

// NewRunner creates a runner for the engine. step may be nil when the host
// advances its own clock.
func NewRunner(engine *Engine, step func()) *Runner {
	return &Runner{
		engine: engine,
		step:   step,
		stopCh: make(chan struct{}),
	}
}

// Start runs the tick loop (blocks until the context is canceled or Stop is
// called).
func (r *Runner) Start(ctx context.Context, interval time.Duration) error {
	r.ticker = time.NewTicker(interval)
	defer r.ticker.Stop()

	slog.Info("spawn tick loop started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("spawn tick loop stopping")
			return ctx.Err()

		case <-r.stopCh:
			slog.Info("spawn tick loop stopped")
			return nil

		case <-r.ticker.C:
			if r.step != nil {
				r.step()
			}
			r.engine.Tick(ctx)
		}
	}
}

// Stop stops the tick loop.
func (r *Runner) Stop() {
	close(r.stopCh)
}
