package socketio

import (
	"sync"
	"time"
)

// BroadcastDebouncer collapses rapid state changes into batched broadcasts.
// Multiple triggers within the window result in a single broadcast once the
// window elapses without further triggers. Flush bypasses the window for
// changes that must reach clients immediately.
type BroadcastDebouncer struct {
	window    time.Duration
	broadcast func()

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	stopped bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
func NewBroadcastDebouncer(window time.Duration, broadcast func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:    window,
		broadcast: broadcast,
	}
}

// Trigger records a state change. The broadcast is deferred until the window
// elapses without further triggers.
func (d *BroadcastDebouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = true

	// Reset the timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// Flush broadcasts immediately, cancelling any pending timer.
func (d *BroadcastDebouncer) Flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.mu.Unlock()

	if d.broadcast != nil {
		d.broadcast()
	}
}

// flush fires the broadcast if still pending.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	doBroadcast := d.pending && !d.stopped
	d.pending = false
	d.mu.Unlock()

	if doBroadcast && d.broadcast != nil {
		d.broadcast()
	}
}

// Stop prevents any further broadcasts from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}
