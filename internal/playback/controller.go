package playback

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/Haven-hvn/haven-player-sub000/internal/media"
	"github.com/Haven-hvn/haven-player-sub000/internal/metrics"
	"github.com/Haven-hvn/haven-player-sub000/internal/prefs"
)

// Presenter bridges fullscreen and picture-in-picture requests to whatever
// surface embeds the player. Requests may be rejected by external permission
// policy; such rejections are logged, never surfaced as playback errors.
type Presenter interface {
	RequestFullscreen() error
	ExitFullscreen() error
	RequestPiP() error
	ExitPiP() error
}

// Controller wraps a media element with a normalized state store, an
// imperative control surface and an automatic failure-recovery engine.
//
// The element is exclusively owned by the controller for the duration of the
// attachment: all element mutation goes through the control API or the
// recovery engine so that state and element never diverge.
type Controller struct {
	opts  Options
	state *State
	el    media.Element
	store prefs.Store

	presenterMu sync.RWMutex
	presenter   Presenter

	timers *timerRegistry

	// Recovery coordination. The CAS flag admits one scheduled sequence at a
	// time; the mutex serializes sequence bodies; the generation counter lets
	// Retry/Reset/Close pre-empt an already-running attempt.
	recovering atomic.Bool
	recoveryMu sync.Mutex
	generation atomic.Uint64

	// Set while a recovery reload is in flight. Abort events from the element
	// are an expected side effect of forcing the reload and are suppressed,
	// and the ready the reload produces must not pre-empt the sequence.
	reloading atomic.Bool

	// Signalled by HandleLoadedData; the recovery engine waits on it.
	loadedCh chan struct{}

	listenerMu sync.RWMutex
	listeners  []func()

	closeOnce sync.Once
	closeCh   chan struct{}
}

// New creates a controller bound to el, seeding volume/mute/rate from the
// preference store and applying them to the element. The stall detector
// starts immediately and runs until Close.
func New(el media.Element, store prefs.Store, opts Options) *Controller {
	opts = opts.withDefaults()
	saved := prefs.Load(store)

	c := &Controller{
		opts:     opts,
		state:    NewState(saved.Volume, saved.Muted, saved.Rate),
		el:       el,
		store:    store,
		timers:   newTimerRegistry(),
		loadedCh: make(chan struct{}, 1),
		closeCh:  make(chan struct{}),
	}

	c.applyPrefs()

	go c.runStallDetector()

	return c
}

// SetPresenter attaches the fullscreen/PiP bridge. May be called after
// construction to break the controller/transport dependency cycle.
func (c *Controller) SetPresenter(p Presenter) {
	c.presenterMu.Lock()
	defer c.presenterMu.Unlock()
	c.presenter = p
}

// OnChange registers a listener invoked after every state mutation. Used by
// the transport to push snapshots.
func (c *Controller) OnChange(fn func()) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns a copy of the current playback state.
func (c *Controller) Snapshot() Snapshot {
	return c.state.Snapshot()
}

// Play starts playback. The playing flag flips optimistically and is
// corrected if the element rejects the call.
func (c *Controller) Play() error {
	c.state.SetPlaying(true)
	if err := c.el.Play(); err != nil {
		c.state.SetPlaying(false)
		c.notify()
		return fmt.Errorf("play: %w", err)
	}
	c.notify()
	return nil
}

// Pause pauses playback.
func (c *Controller) Pause() error {
	err := c.el.Pause()
	c.state.SetPlaying(false)
	c.notify()
	if err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	return nil
}

// TogglePlay plays when paused and pauses when playing.
func (c *Controller) TogglePlay() error {
	if c.state.Snapshot().Playing {
		return c.Pause()
	}
	return c.Play()
}

// SetVolume clamps v to [0,1], writes it through to the element and persists
// it. Persistence failures are logged, never returned.
func (c *Controller) SetVolume(v float64) error {
	clamped := c.state.SetVolume(v)
	if err := prefs.SaveVolume(c.store, clamped); err != nil {
		log.Warn().Err(err).Msg("Persisting volume failed")
	}
	c.notify()
	if err := c.el.SetVolume(clamped); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

// ToggleMute flips the mute flag, applies it to the element and persists it.
func (c *Controller) ToggleMute() error {
	muted := c.state.ToggleMute()
	if err := prefs.SaveMuted(c.store, muted); err != nil {
		log.Warn().Err(err).Msg("Persisting mute failed")
	}
	c.notify()
	if err := c.el.SetMuted(muted); err != nil {
		return fmt.Errorf("toggle mute: %w", err)
	}
	return nil
}

// SetPlaybackRate snaps r to the rate ladder, applies and persists it.
func (c *Controller) SetPlaybackRate(r float64) error {
	rate := c.state.SetPlaybackRate(r)
	if err := prefs.SaveRate(c.store, rate); err != nil {
		log.Warn().Err(err).Msg("Persisting playback rate failed")
	}
	c.notify()
	if err := c.el.SetPlaybackRate(rate); err != nil {
		return fmt.Errorf("set playback rate: %w", err)
	}
	return nil
}

// Seek moves to fraction of the duration. The fraction is clamped to [0,1];
// the call is a no-op while the duration is unknown.
func (c *Controller) Seek(fraction float64) error {
	snap := c.state.Snapshot()
	if snap.Duration == 0 {
		return nil
	}

	fraction = clamp01(fraction)
	target := fraction * snap.Duration

	c.state.SetSeeking(true)
	err := c.el.SetCurrentTime(target)
	// Update played optimistically so the UI tracks the scrubber immediately.
	c.state.SetProgress(fraction, snap.Loaded)
	c.state.SetSeeking(false)
	c.notify()

	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

// SeekRelative moves by seconds (negative for backward), clamping the target
// to [0, duration].
func (c *Controller) SeekRelative(seconds float64) error {
	snap := c.state.Snapshot()
	if snap.Duration == 0 {
		return nil
	}

	target := c.el.CurrentTime() + seconds
	if target < 0 {
		target = 0
	}
	if target > snap.Duration {
		target = snap.Duration
	}

	if err := c.el.SetCurrentTime(target); err != nil {
		return fmt.Errorf("seek relative: %w", err)
	}
	c.state.SetProgress(target/snap.Duration, snap.Loaded)
	c.notify()
	return nil
}

// SkipForward jumps ahead by the configured skip distance.
func (c *Controller) SkipForward() error {
	return c.SeekRelative(c.opts.SkipSeconds)
}

// SkipBackward jumps back by the configured skip distance.
func (c *Controller) SkipBackward() error {
	return c.SeekRelative(-c.opts.SkipSeconds)
}

// FrameForward pauses and steps one frame ahead. Frame-accurate stepping
// requires a paused element.
func (c *Controller) FrameForward() error {
	return c.frameStep(1)
}

// FrameBackward pauses and steps one frame back.
func (c *Controller) FrameBackward() error {
	return c.frameStep(-1)
}

func (c *Controller) frameStep(direction float64) error {
	if err := c.Pause(); err != nil {
		return err
	}
	return c.SeekRelative(direction / c.opts.FrameRate)
}

// ToggleFullscreen requests or exits fullscreen depending on current state.
// The state flag itself is mirrored from the document-level change event, not
// flipped here. Rejections (e.g. permission policy) are logged only.
func (c *Controller) ToggleFullscreen() error {
	p := c.currentPresenter()
	if p == nil {
		return fmt.Errorf("toggle fullscreen: no presenter attached")
	}

	var err error
	if c.state.Snapshot().Fullscreen {
		err = p.ExitFullscreen()
	} else {
		err = p.RequestFullscreen()
	}
	if err != nil {
		log.Warn().Err(err).Msg("Fullscreen request rejected")
	}
	return err
}

// TogglePip requests or exits picture-in-picture depending on current state.
func (c *Controller) TogglePip() error {
	p := c.currentPresenter()
	if p == nil {
		return fmt.Errorf("toggle pip: no presenter attached")
	}

	var err error
	if c.state.Snapshot().PiP {
		err = p.ExitPiP()
	} else {
		err = p.RequestPiP()
	}
	if err != nil {
		log.Warn().Err(err).Msg("Picture-in-picture request rejected")
	}
	return err
}

func (c *Controller) currentPresenter() Presenter {
	c.presenterMu.RLock()
	defer c.presenterMu.RUnlock()
	return c.presenter
}

// ToggleLoop flips the loop flag and applies it to the element.
func (c *Controller) ToggleLoop() error {
	loop := c.state.ToggleLoop()
	c.notify()
	if err := c.el.SetLoop(loop); err != nil {
		return fmt.Errorf("toggle loop: %w", err)
	}
	return nil
}

// ToggleRemainingTime flips the remaining-time display flag.
func (c *Controller) ToggleRemainingTime() {
	c.state.ToggleRemainingTime()
	c.notify()
}

// Retry is the manual recovery override: it cancels all pending timers,
// resets the retry budget and starts a recovery sequence regardless of the
// recorded error's classification.
func (c *Controller) Retry() {
	c.timers.CancelAll()
	c.generation.Add(1)
	c.recovering.Store(false)

	c.state.SetRetryCount(0)
	c.state.SetStalled(false)
	c.notify()

	log.Info().Msg("Manual retry requested")
	c.scheduleRecovery()
}

// ClearError removes the recorded error without touching the element.
func (c *Controller) ClearError() {
	c.state.ClearError()
	c.notify()
}

// Reset returns every transient state field to its initial value and pauses
// and rewinds the element. Used when switching media sources.
func (c *Controller) Reset() error {
	c.timers.CancelAll()
	c.generation.Add(1)
	c.recovering.Store(false)

	c.state.Reset()
	c.notify()

	if err := c.el.Pause(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := c.el.SetCurrentTime(0); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Close tears down the controller: every outstanding timer is cancelled and
// the stall detector stops, so no callback can mutate state afterwards. The
// element itself is not closed; it outlives the attachment.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.generation.Add(1)
		c.timers.Stop()
	})
	return nil
}

func (c *Controller) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// applyPrefs pushes the persisted volume/mute/rate onto the element. The
// element may have reset them on a source change.
func (c *Controller) applyPrefs() {
	snap := c.state.Snapshot()
	if err := c.el.SetVolume(snap.Volume); err != nil {
		log.Warn().Err(err).Msg("Applying volume to element failed")
	}
	if err := c.el.SetMuted(snap.Muted); err != nil {
		log.Warn().Err(err).Msg("Applying mute to element failed")
	}
	if err := c.el.SetPlaybackRate(snap.PlaybackRate); err != nil {
		log.Warn().Err(err).Msg("Applying playback rate to element failed")
	}
}

// setError records a classified failure, reports it and counts it.
func (c *Controller) setError(err *Error) {
	c.state.SetError(err)
	metrics.IncPlaybackError(string(err.Type))
	log.Error().
		Str("type", string(err.Type)).
		Int("code", err.Code).
		Bool("recoverable", err.Recoverable).
		Msg(err.Message)

	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
	c.notify()
}

func (c *Controller) notify() {
	c.listenerMu.RLock()
	listeners := c.listeners
	c.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}
