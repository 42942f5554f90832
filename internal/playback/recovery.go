package playback

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Haven-hvn/haven-player-sub000/internal/metrics"
)

// reloadYield is the brief pause between clearing and restoring the source
// during a recovery reload, giving the playback stack a chance to fully
// release its internal state.
const reloadYield = 50 * time.Millisecond

// scheduleRecovery arms a backed-off recovery attempt. Only one sequence may
// be scheduled or running at a time; concurrent triggers (element error and
// stall timeout racing, for example) collapse into one.
func (c *Controller) scheduleRecovery() {
	if c.closed() {
		return
	}
	if !c.recovering.CompareAndSwap(false, true) {
		return
	}

	attempt := c.state.Retries()
	delay := c.opts.backoffDelay(attempt)
	gen := c.generation.Load()

	log.Info().
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("Recovery scheduled")

	c.timers.Arm(timerRetry, delay, func() {
		c.runRecovery(gen)
	})
}

// runRecovery executes one reload-and-reseek sequence and handles the retry
// bookkeeping. Sequence bodies are serialized; a sequence whose generation
// was bumped by Retry, Reset, Close or a spontaneous ready abandons without
// touching state.
func (c *Controller) runRecovery(gen uint64) {
	c.recoveryMu.Lock()
	recovered, abandoned := c.attemptRecovery(gen)
	c.recoveryMu.Unlock()

	c.recovering.Store(false)

	if abandoned || recovered {
		return
	}

	metrics.IncRecoveryOutcome("failure")
	retries := c.state.IncRetry()
	c.notify()

	if retries >= c.opts.MaxRetries {
		log.Error().
			Int("retries", retries).
			Msg("Recovery budget exhausted, error is terminal until manual retry")
		return
	}

	// Stall/timeout/network errors keep retrying automatically; a manual
	// retry of a non-recoverable error gets exactly one attempt.
	if err := c.state.Error(); err != nil && err.Recoverable {
		c.scheduleRecovery()
	}
}

// attemptRecovery performs the element reload: save position, pause, drop
// and restore the source with a yield in between, wait for data, reseek and
// resume. Returns recovered=true on success, abandoned=true when the attempt
// was pre-empted or the controller closed mid-flight.
func (c *Controller) attemptRecovery(gen uint64) (recovered, abandoned bool) {
	if c.closed() || gen != c.generation.Load() {
		return false, true
	}

	logger := log.With().Str("attempt_id", uuid.NewString()).Logger()
	metrics.IncRecoveryAttempt()

	snap := c.state.Snapshot()
	wasPlaying := snap.Playing
	position := c.el.CurrentTime()

	logger.Info().
		Float64("position", position).
		Bool("was_playing", wasPlaying).
		Msg("Recovery attempt started")

	c.reloading.Store(true)
	defer c.reloading.Store(false)

	// Drain a stale loaded signal from before this attempt.
	select {
	case <-c.loadedCh:
	default:
	}

	if err := c.el.Pause(); err != nil {
		logger.Warn().Err(err).Msg("Recovery pause failed")
		return false, false
	}

	src := c.el.Source()
	if err := c.el.SetSource(""); err != nil {
		logger.Warn().Err(err).Msg("Recovery source clear failed")
		return false, false
	}
	if err := c.el.Load(); err != nil {
		logger.Warn().Err(err).Msg("Recovery unload failed")
		return false, false
	}

	select {
	case <-time.After(reloadYield):
	case <-c.closeCh:
		return false, true
	}

	if err := c.el.SetSource(src); err != nil {
		logger.Warn().Err(err).Msg("Recovery source restore failed")
		return false, false
	}
	if err := c.el.Load(); err != nil {
		logger.Warn().Err(err).Msg("Recovery reload failed")
		return false, false
	}

	select {
	case <-c.loadedCh:
	case <-time.After(c.opts.LoadTimeout):
		logger.Warn().Dur("timeout", c.opts.LoadTimeout).Msg("Recovery reload timed out waiting for data")
		return false, false
	case <-c.closeCh:
		return false, true
	}

	if gen != c.generation.Load() {
		return false, true
	}

	c.finishRecovery(logger, position, wasPlaying)
	return true, false
}

// finishRecovery restores the saved position and play state and clears the
// failure bookkeeping.
func (c *Controller) finishRecovery(logger zerolog.Logger, position float64, wasPlaying bool) {
	duration := c.el.Duration()
	if position > 0 && duration > 0 && position < duration {
		if err := c.el.SetCurrentTime(position); err != nil {
			logger.Warn().Err(err).Msg("Recovery reseek failed, continuing from start")
		}
	}

	if wasPlaying {
		if err := c.el.Play(); err != nil {
			logger.Warn().Err(err).Msg("Recovery resume failed")
		} else {
			c.state.SetPlaying(true)
		}
	}

	c.state.ClearError()
	c.state.SetStalled(false)
	c.state.SetBuffering(false)
	c.state.SetRetryCount(0)
	c.notify()

	metrics.IncRecoveryOutcome("success")
	logger.Info().Float64("position", position).Msg("Recovery succeeded")

	if c.opts.OnRecovery != nil {
		c.opts.OnRecovery()
	}
}
