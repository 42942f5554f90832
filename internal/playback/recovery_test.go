package playback_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Haven-hvn/haven-player-sub000/internal/media"
	"github.com/Haven-hvn/haven-player-sub000/internal/playback"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestRecoveryReloadsAndRestoresPlayback(t *testing.T) {
	el := newFakeElement()
	el.duration = 300
	el.src = "http://media.local/stream.mp4"

	var recoveries int32
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: time.Hour,
		RetryDelay:         10 * time.Millisecond,
		LoadTimeout:        2 * time.Second,
		OnRecovery:         func() { atomic.AddInt32(&recoveries, 1) },
	})
	defer c.Close()

	// Each reload of a non-empty source reports data loaded, the way a
	// healthy element would after a recovery reload.
	el.mu.Lock()
	el.onLoad = func(src string) {
		if src != "" {
			c.HandleLoadedData()
		}
	}
	el.mu.Unlock()

	if err := c.Play(); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	el.setPosition(120)

	c.HandleError(media.ErrCodeNetwork, "connection dropped")

	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&recoveries) == 1 }) {
		t.Fatal("expected recovery to complete")
	}

	snap := c.Snapshot()
	if snap.Error != nil {
		t.Errorf("expected error cleared, got %v", snap.Error)
	}
	if snap.RetryCount != 0 {
		t.Errorf("expected retry count reset, got %d", snap.RetryCount)
	}
	if !snap.Playing {
		t.Error("expected playback resumed")
	}
	if got := el.position(); got != 120 {
		t.Errorf("expected position restored to 120, got %v", got)
	}
	if got := el.Source(); got != "http://media.local/stream.mp4" {
		t.Errorf("expected source restored, got %q", got)
	}
	// Clear + restore means at least two loads.
	if got := el.loads(); got < 2 {
		t.Errorf("expected a full unload/reload cycle, got %d loads", got)
	}
}

func TestReadyDuringRecoveryReloadDoesNotAbandonSequence(t *testing.T) {
	el := newFakeElement()
	el.duration = 300
	el.src = "http://media.local/stream.mp4"

	var recoveries int32
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: time.Hour,
		RetryDelay:         10 * time.Millisecond,
		LoadTimeout:        2 * time.Second,
		OnRecovery:         func() { atomic.AddInt32(&recoveries, 1) },
	})
	defer c.Close()

	// A healthy element fires loadeddata and then ready after a reload; the
	// relayed ready must not abandon the sequence that caused it, or the
	// reseek and resume would never run.
	el.mu.Lock()
	el.onLoad = func(src string) {
		if src != "" {
			c.HandleLoadedData()
			c.HandleReady()
		}
	}
	el.mu.Unlock()

	if err := c.Play(); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	el.setPosition(120)

	c.HandleError(media.ErrCodeNetwork, "connection dropped")

	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&recoveries) == 1 }) {
		t.Fatal("expected recovery to complete despite the ready relay")
	}

	if got := el.position(); got != 120 {
		t.Errorf("expected position restored to 120, got %v", got)
	}
	if el.Paused() {
		t.Error("expected element resumed after recovery")
	}
	snap := c.Snapshot()
	if !snap.Playing {
		t.Error("expected playback resumed")
	}
	if snap.Error != nil {
		t.Errorf("expected error cleared, got %v", snap.Error)
	}
}

func TestRecoveryStopsAfterBudgetExhausted(t *testing.T) {
	el := newFakeElement()
	el.src = "http://media.local/stream.mp4"
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: time.Hour,
		MaxRetries:         2,
		RetryDelay:         5 * time.Millisecond,
		MaxRetryDelay:      20 * time.Millisecond,
		LoadTimeout:        10 * time.Millisecond, // reloads never finish
	})
	defer c.Close()

	c.HandleError(media.ErrCodeNetwork, "connection dropped")

	if !waitFor(t, 2*time.Second, func() bool { return c.Snapshot().RetryCount >= 2 }) {
		t.Fatalf("expected retry budget consumed, got %d", c.Snapshot().RetryCount)
	}

	loadsAtExhaustion := el.loads()
	time.Sleep(150 * time.Millisecond)

	if got := el.loads(); got != loadsAtExhaustion {
		t.Errorf("expected no further attempts after exhaustion, loads went %d -> %d", loadsAtExhaustion, got)
	}
	if err := c.Snapshot().Error; err == nil {
		t.Error("expected the error to remain terminal")
	}
}

func TestManualRetryResetsBudgetAndRecovers(t *testing.T) {
	el := newFakeElement()
	el.src = "http://media.local/stream.mp4"

	var recoveries int32
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: time.Hour,
		MaxRetries:         1,
		RetryDelay:         5 * time.Millisecond,
		LoadTimeout:        10 * time.Millisecond,
		OnRecovery:         func() { atomic.AddInt32(&recoveries, 1) },
	})
	defer c.Close()

	c.HandleError(media.ErrCodeNetwork, "connection dropped")
	if !waitFor(t, 2*time.Second, func() bool { return c.Snapshot().RetryCount >= 1 }) {
		t.Fatal("expected automatic attempts to exhaust")
	}

	// The stream comes back: reloads now succeed.
	el.mu.Lock()
	el.onLoad = func(src string) {
		if src != "" {
			c.HandleLoadedData()
		}
	}
	el.mu.Unlock()

	c.Retry()

	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&recoveries) == 1 }) {
		t.Fatal("expected manual retry to recover")
	}
	snap := c.Snapshot()
	if snap.Error != nil {
		t.Errorf("expected error cleared after manual retry, got %v", snap.Error)
	}
	if snap.RetryCount != 0 {
		t.Errorf("expected retry count reset, got %d", snap.RetryCount)
	}
}

func TestNonRecoverableErrorDoesNotAutoRecover(t *testing.T) {
	el := newFakeElement()
	el.src = "http://media.local/stream.mp4"
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: time.Hour,
		RetryDelay:         5 * time.Millisecond,
	})
	defer c.Close()

	c.HandleError(media.ErrCodeDecode, "bitstream corrupt")

	time.Sleep(100 * time.Millisecond)
	if got := el.loads(); got != 0 {
		t.Errorf("expected no recovery attempts for a decode error, got %d loads", got)
	}
	if err := c.Snapshot().Error; err == nil || err.Type != playback.ErrDecode {
		t.Errorf("expected decode error retained, got %v", err)
	}
}

func TestResetAbandonsPendingRecovery(t *testing.T) {
	el := newFakeElement()
	el.src = "http://media.local/stream.mp4"
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: time.Hour,
		RetryDelay:         50 * time.Millisecond,
	})
	defer c.Close()

	c.HandleError(media.ErrCodeNetwork, "connection dropped")
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := el.loads(); got != 0 {
		t.Errorf("expected scheduled recovery abandoned by reset, got %d loads", got)
	}
	if err := c.Snapshot().Error; err != nil {
		t.Errorf("expected clean state after reset, got %v", err)
	}
}

func TestConcurrentTriggersCollapseIntoOneSequence(t *testing.T) {
	el := newFakeElement()
	el.src = "http://media.local/stream.mp4"

	var recoveries int32
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: time.Hour,
		RetryDelay:         20 * time.Millisecond,
		LoadTimeout:        2 * time.Second,
		OnRecovery:         func() { atomic.AddInt32(&recoveries, 1) },
	})
	defer c.Close()

	el.mu.Lock()
	el.onLoad = func(src string) {
		if src != "" {
			c.HandleLoadedData()
		}
	}
	el.mu.Unlock()

	// An element error and a stall racing each other must not double-book.
	c.HandleError(media.ErrCodeNetwork, "connection dropped")
	c.HandleError(media.ErrCodeNetwork, "connection dropped again")

	if !waitFor(t, 2*time.Second, func() bool { return atomic.LoadInt32(&recoveries) >= 1 }) {
		t.Fatal("expected recovery to complete")
	}
	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&recoveries); got != 1 {
		t.Errorf("expected exactly one recovery sequence, got %d", got)
	}
}

func TestStallDetectorFlagsFrozenPosition(t *testing.T) {
	el := newFakeElement()
	el.duration = 100
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: 10 * time.Millisecond,
		StallTimeout:       time.Hour,
		RetryDelay:         time.Hour,
	})
	defer c.Close()

	if err := c.Play(); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	el.setPosition(42) // and never advances

	if !waitFor(t, 2*time.Second, func() bool { return c.Snapshot().Stalled }) {
		t.Fatal("expected detector to flag the frozen position")
	}
}

func TestStallDetectorIgnoresPausedPlayback(t *testing.T) {
	el := newFakeElement()
	el.duration = 100
	c := playback.New(el, nil, playback.Options{
		StallCheckInterval: 10 * time.Millisecond,
	})
	defer c.Close()

	el.setPosition(42)
	// Not playing: the frozen position is expected.
	time.Sleep(100 * time.Millisecond)

	if c.Snapshot().Stalled {
		t.Error("expected no stall while paused")
	}
}
