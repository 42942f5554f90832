package playback

import (
	"sync"
	"time"
)

// Names of the one-shot timers the controller arms.
const (
	timerStall = "stall"
	timerLoad  = "load"
	timerRetry = "retry"
)

// timerRegistry centralizes the controller's cancellable one-shot timers so
// that teardown, Retry and Reset can guarantee "clear everything" in a single
// call. A timer armed under an existing name replaces the pending one.
type timerRegistry struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{timers: make(map[string]*time.Timer)}
}

// Arm schedules fn to run after d, replacing any pending timer with the same
// name. fn does not run if the timer is cancelled or the registry stopped
// before it fires.
func (r *timerRegistry) Arm(name string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}

	if t, ok := r.timers[name]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		// The callback may race a Cancel/Stop that lost to the firing timer;
		// only proceed if this exact timer is still registered.
		r.mu.Lock()
		current, ok := r.timers[name]
		if !ok || current != t || r.stopped {
			r.mu.Unlock()
			return
		}
		delete(r.timers, name)
		r.mu.Unlock()

		fn()
	})
	r.timers[name] = t
}

// Cancel stops the named timer if pending.
func (r *timerRegistry) Cancel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[name]; ok {
		t.Stop()
		delete(r.timers, name)
	}
}

// CancelAll stops every pending timer.
func (r *timerRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
}

// Stop cancels everything and rejects further Arm calls.
func (r *timerRegistry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
}
