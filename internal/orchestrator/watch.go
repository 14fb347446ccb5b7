package orchestrator

import (
	"context"
	"errors"
	"time"
)

// Watch runs ProcessPending immediately, then again on every tick of
// interval and every signal on trigger (which may be nil). It returns when
// ctx ends. Batch errors are logged, not returned.
func (o *Orchestrator) Watch(ctx context.Context, interval time.Duration, trigger <-chan struct{}) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	o.logger.Info("Watching for approved requests", "interval", interval, "trigger", trigger != nil)
	for {
		if _, err := o.ProcessPending(ctx); err != nil && !errors.Is(err, ctx.Err()) {
			o.logger.Error("Batch failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
			}
		}
	}
}
