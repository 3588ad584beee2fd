package reconcile

import (
	"sync"
	"time"
)

// Debouncer holds at most one pending operation. Scheduling a new one
// cancels the previous, so cancellation-on-supersede is structural rather
// than tracked by callers. A non-positive delay runs the operation
// synchronously, which keeps tests deterministic.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Do schedules fn after the quiet period, replacing any pending operation.
func (d *Debouncer) Do(delay time.Duration, fn func()) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if delay <= 0 {
		d.mu.Unlock()
		fn()
		return
	}
	d.timer = time.AfterFunc(delay, fn)
	d.mu.Unlock()
}

// Cancel drops the pending operation, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
}
