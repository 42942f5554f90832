package playback

import (
	"github.com/rs/zerolog/log"

	"github.com/Haven-hvn/haven-player-sub000/internal/media"
)

// Event ingestion: the embedding UI (or an element adapter's event pump)
// must call these handlers on the corresponding native element events. They
// normalize raw events into state updates and trigger the recovery engine on
// errors and stalls. Handlers are assumed to arrive in emission order.

// HandleProgress recomputes the played/loaded fractions from the element's
// position and furthest buffered range. Forward progress clears the stalled
// flag.
func (c *Controller) HandleProgress() {
	dur := c.el.Duration()
	if dur <= 0 {
		return
	}

	played := c.el.CurrentTime() / dur
	loaded := media.BufferedEnd(c.el.Buffered()) / dur
	c.state.SetDuration(dur)
	c.state.SetProgress(played, loaded)
	c.notify()
}

// HandleDuration records a duration change.
func (c *Controller) HandleDuration(d float64) {
	c.state.SetDuration(d)
	c.notify()
}

// HandleReady runs when the element reports it can play: pending timers are
// cleared, error state and the retry budget reset, and the persisted
// volume/mute/rate are re-applied (the element may have dropped them on a
// source change).
func (c *Controller) HandleReady() {
	c.timers.CancelAll()

	// A spontaneous ready abandons any pending recovery. A ready produced by
	// the recovery reload itself must not pre-empt the sequence that caused
	// it, or the reseek and resume would never run.
	if !c.reloading.Load() {
		c.generation.Add(1)
		c.recovering.Store(false)
	}

	c.state.ClearError()
	c.state.SetRetryCount(0)
	c.state.SetStalled(false)
	c.state.SetBuffering(false)
	c.state.SetReadyState(c.el.ReadyState())

	c.applyPrefs()
	c.notify()

	if c.opts.OnReady != nil {
		c.opts.OnReady()
	}
}

// HandleError classifies a native element error, records it and schedules a
// recovery attempt when the classification is recoverable and budget remains.
// Pass code 0 when the element reported no classifiable cause.
func (c *Controller) HandleError(code int, message string) {
	err := Classify(code, message)
	c.setError(err)

	if err.Recoverable && c.state.Retries() < c.opts.MaxRetries {
		c.scheduleRecovery()
	}
}

// HandleBuffer tracks buffering transitions. Entering buffering arms the
// stall timeout; leaving it cancels the timeout and clears the stalled flag.
func (c *Controller) HandleBuffer(buffering bool) {
	if buffering {
		c.state.SetBuffering(true)
		c.timers.Arm(timerStall, c.opts.StallTimeout, c.onStallTimeout)
	} else {
		c.timers.Cancel(timerStall)
		c.state.SetBuffering(false)
	}
	c.notify()
}

// HandleEnded records the end of playback. With loop enabled the element is
// expected to restart natively, so the event is swallowed entirely.
func (c *Controller) HandleEnded() {
	if c.state.Snapshot().Loop {
		return
	}

	c.state.MarkEnded()
	c.notify()

	if c.opts.OnEnded != nil {
		c.opts.OnEnded()
	}
}

// HandleStalled routes the element's own stalled event through the buffering
// path, arming the stall timeout.
func (c *Controller) HandleStalled() {
	c.HandleBuffer(true)
}

// HandleWaiting routes the waiting event through the buffering path.
func (c *Controller) HandleWaiting() {
	c.HandleBuffer(true)
}

// HandleCanPlay clears buffering and stalled state.
func (c *Controller) HandleCanPlay() {
	c.state.SetReadyState(c.el.ReadyState())
	c.HandleBuffer(false)
}

// HandleCanPlayThrough clears buffering and stalled state.
func (c *Controller) HandleCanPlayThrough() {
	c.state.SetReadyState(c.el.ReadyState())
	c.HandleBuffer(false)
}

// HandleLoadStart marks the network as loading and arms the load timeout.
func (c *Controller) HandleLoadStart() {
	c.state.SetNetworkState(NetworkLoading)
	c.timers.Arm(timerLoad, c.opts.LoadTimeout, c.onLoadTimeout)
	c.notify()
}

// HandleLoadedData cancels the load timeout, marks the network as loaded and
// signals a recovery sequence waiting for data.
func (c *Controller) HandleLoadedData() {
	c.timers.Cancel(timerLoad)
	c.state.SetNetworkState(NetworkLoaded)
	c.state.SetReadyState(c.el.ReadyState())
	c.notify()

	select {
	case c.loadedCh <- struct{}{}:
	default:
	}
}

// HandleSuspend marks the network as idle; the element has intentionally
// stopped fetching data.
func (c *Controller) HandleSuspend() {
	c.state.SetNetworkState(NetworkIdle)
	c.notify()
}

// HandleAbort surfaces an interrupted load. While a recovery reload is in
// flight the abort is an expected side effect and suppressed.
func (c *Controller) HandleAbort() {
	if c.reloading.Load() {
		log.Debug().Msg("Abort during recovery reload, suppressed")
		return
	}
	c.HandleError(media.ErrCodeAborted, "")
}

// HandleFullscreenChange mirrors the document-level fullscreen state.
func (c *Controller) HandleFullscreenChange(active bool) {
	c.state.SetFullscreen(active)
	c.notify()
}

// HandlePiPChange mirrors the document-level picture-in-picture state.
func (c *Controller) HandlePiPChange(active bool) {
	c.state.SetPiP(active)
	c.notify()
}

// onStallTimeout fires when buffering outlived the stall timeout: a stall
// error is synthesized and recovery attempted while budget remains.
func (c *Controller) onStallTimeout() {
	c.state.SetStalled(true)
	c.setError(NewError(ErrStall, "buffering exceeded the stall timeout"))

	if c.state.Retries() < c.opts.MaxRetries {
		c.scheduleRecovery()
	}
}

// onLoadTimeout fires when loading outlived the load timeout.
func (c *Controller) onLoadTimeout() {
	c.setError(NewError(ErrTimeout, "media loading exceeded the load timeout"))

	if c.state.Retries() < c.opts.MaxRetries {
		c.scheduleRecovery()
	}
}
