package mpd

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Haven-hvn/haven-player-sub000/internal/media"
)

// Element presents an MPD daemon as a media element. Position, duration and
// play state come from the daemon's status; the source is modeled as a
// single-entry queue.
type Element struct {
	client *Client

	mu      sync.Mutex
	src     string
	volume  float64 // last requested volume, kept for mute restore
	muted   bool
	started bool
}

// NewElement wraps an MPD client as a media element.
func NewElement(client *Client) *Element {
	return &Element{client: client, volume: 1}
}

func (e *Element) statusAttr(key string) (string, bool) {
	status, err := e.client.Status()
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("MPD status unavailable")
		return "", false
	}
	v, ok := status[key]
	return v, ok
}

func (e *Element) statusFloat(key string) float64 {
	v, ok := e.statusAttr(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func (e *Element) Play() error {
	e.mu.Lock()
	src := e.src
	e.mu.Unlock()

	if src == "" {
		return fmt.Errorf("no source loaded")
	}
	if err := e.client.Play(); err != nil {
		return err
	}

	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
	return nil
}

func (e *Element) Pause() error {
	return e.client.Pause(true)
}

func (e *Element) CurrentTime() float64 {
	return e.statusFloat("elapsed")
}

func (e *Element) SetCurrentTime(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return e.client.Seek(int(seconds))
}

func (e *Element) Duration() float64 {
	if d := e.statusFloat("duration"); d > 0 {
		return d
	}
	// Older daemons report whole seconds under Time as "elapsed:total".
	return e.statusFloat("Time")
}

// Buffered reports the whole track as available. The daemon streams from its
// own storage, so there is no partial buffer to expose; an unknown duration
// reports nothing buffered.
func (e *Element) Buffered() []media.TimeRange {
	d := e.Duration()
	if d <= 0 {
		return nil
	}
	return []media.TimeRange{{Start: 0, End: d}}
}

func (e *Element) ReadyState() media.ReadyState {
	state, ok := e.statusAttr("state")
	if !ok {
		return media.HaveNothing
	}
	switch state {
	case "play", "pause":
		return media.HaveEnoughData
	case "stop":
		if _, ok := e.statusAttr("song"); ok {
			return media.HaveMetadata
		}
		return media.HaveNothing
	default:
		return media.HaveNothing
	}
}

func (e *Element) Paused() bool {
	state, ok := e.statusAttr("state")
	if !ok {
		return true
	}
	return state != "play"
}

// Ended reports whether playback ran off the end of the queue. A stopped
// daemon that was never started is not ended.
func (e *Element) Ended() bool {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return false
	}

	state, ok := e.statusAttr("state")
	return ok && state == "stop"
}

func (e *Element) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	e.mu.Lock()
	e.volume = v
	muted := e.muted
	e.mu.Unlock()

	if muted {
		return nil
	}
	return e.client.SetVolume(int(v*100 + 0.5))
}

// SetMuted drives the daemon volume to zero and back. MPD has no native mute,
// so the pre-mute volume is cached and restored.
func (e *Element) SetMuted(muted bool) error {
	e.mu.Lock()
	e.muted = muted
	restore := e.volume
	e.mu.Unlock()

	if muted {
		return e.client.SetVolume(0)
	}
	return e.client.SetVolume(int(restore*100 + 0.5))
}

// SetPlaybackRate is accepted but has no effect: the daemon plays at native
// speed only.
func (e *Element) SetPlaybackRate(rate float64) error {
	log.Debug().Float64("rate", rate).Msg("MPD cannot change playback rate, ignoring")
	return nil
}

func (e *Element) SetLoop(loop bool) error {
	if err := e.client.SetRepeat(loop); err != nil {
		return err
	}
	return e.client.SetSingle(loop)
}

func (e *Element) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// SetSource replaces the queue with the given URI. An empty URI clears the
// queue entirely, unloading the daemon.
func (e *Element) SetSource(uri string) error {
	if err := e.client.Clear(); err != nil {
		return err
	}

	e.mu.Lock()
	e.src = uri
	e.started = false
	e.mu.Unlock()

	if uri == "" {
		return nil
	}
	return e.client.Add(uri)
}

// Load verifies the daemon connection. MPD fetches media lazily on play, so
// there is nothing further to prime.
func (e *Element) Load() error {
	return e.client.ensureConnected()
}

var _ media.Element = (*Element)(nil)
