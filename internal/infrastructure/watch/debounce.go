// Package watch reloads workspace files when they change on disk.
package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of change events into one callback carrying
// the last event of the burst.
type Debouncer struct {
	window   time.Duration
	callback func(ChangeEvent)

	mu      sync.Mutex
	timer   *time.Timer
	last    ChangeEvent
	stopped bool
}

func NewDebouncer(window time.Duration, callback func(ChangeEvent)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
	}
}

// Trigger records ev and restarts the window.
func (d *Debouncer) Trigger(ev ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.last = ev
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	ev := d.last
	d.mu.Unlock()

	if d.callback != nil {
		d.callback(ev)
	}
}

// Stop cancels any pending callback; later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
