package playback

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Haven-hvn/haven-player-sub000/internal/metrics"
)

// runStallDetector samples the element position on a fixed interval while
// playback is nominally healthy. An unchanged position with the element
// still claiming to play catches silent stalls the element never reports
// through its own waiting/stalled events.
func (c *Controller) runStallDetector() {
	ticker := time.NewTicker(c.opts.StallCheckInterval)
	defer ticker.Stop()

	lastPos := -1.0

	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			snap := c.state.Snapshot()
			if !snap.Playing || snap.Buffering || snap.Error != nil || snap.Stalled {
				lastPos = -1
				continue
			}

			pos := c.el.CurrentTime()
			if pos == lastPos && !c.el.Paused() && !c.el.Ended() {
				c.state.SetStalled(true)
				metrics.IncStallDetected()
				log.Warn().
					Float64("position", pos).
					Msg("Playback position frozen while element reports playing")
				c.notify()
			}
			lastPos = pos
		}
	}
}
