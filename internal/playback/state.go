// Package playback provides the playback resilience controller: a normalized
// state store over a raw media element, an imperative control surface, and an
// automatic stall/error recovery engine.
package playback

import (
	"sync"

	"github.com/Haven-hvn/haven-player-sub000/internal/media"
)

// Network load states reported in snapshots.
const (
	NetworkIdle     = "idle"
	NetworkLoading  = "loading"
	NetworkLoaded   = "loaded"
	NetworkNoSource = "no-source"
)

// Rates is the fixed playback rate ladder.
var Rates = []float64{0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// snapRate returns the ladder entry closest to r.
func snapRate(r float64) float64 {
	best := Rates[0]
	for _, candidate := range Rates {
		if abs(candidate-r) < abs(best-r) {
			best = candidate
		}
	}
	return best
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// State is the single mutable snapshot of playback, UI and error state.
// It is safe for concurrent access.
type State struct {
	mu sync.RWMutex

	// Playback
	Playing      bool
	Muted        bool
	Volume       float64 // [0,1]
	PlaybackRate float64 // one of Rates
	Played       float64 // fraction of duration, [0,1]
	Loaded       float64 // fraction buffered, [0,1]
	Duration     float64 // seconds

	// Transient conditions
	Seeking   bool
	Buffering bool
	Stalled   bool

	// Presentation
	Fullscreen        bool
	PiP               bool
	Loop              bool
	ShowRemainingTime bool

	// Failure tracking
	Err        *Error
	RetryCount int

	// Element health
	NetworkState string
	ReadyState   media.ReadyState
}

// NewState creates a player state seeded with persisted preferences.
func NewState(volume float64, muted bool, rate float64) *State {
	return &State{
		Volume:       clamp01(volume),
		Muted:        muted,
		PlaybackRate: snapRate(rate),
		NetworkState: NetworkIdle,
	}
}

// Snapshot is an immutable copy of the state, shaped for the embedding UI.
type Snapshot struct {
	Playing           bool    `json:"playing"`
	Muted             bool    `json:"muted"`
	Volume            float64 `json:"volume"`
	PlaybackRate      float64 `json:"playbackRate"`
	Played            float64 `json:"played"`
	Loaded            float64 `json:"loaded"`
	Duration          float64 `json:"duration"`
	Seeking           bool    `json:"seeking"`
	Buffering         bool    `json:"buffering"`
	Stalled           bool    `json:"isStalled"`
	Fullscreen        bool    `json:"fullscreen"`
	PiP               bool    `json:"pip"`
	Loop              bool    `json:"loop"`
	ShowRemainingTime bool    `json:"showRemainingTime"`
	Error             *Error  `json:"error,omitempty"`
	RetryCount        int     `json:"retryCount"`
	NetworkState      string  `json:"networkState"`
	ReadyState        string  `json:"readyState"`
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Playing:           s.Playing,
		Muted:             s.Muted,
		Volume:            s.Volume,
		PlaybackRate:      s.PlaybackRate,
		Played:            s.Played,
		Loaded:            s.Loaded,
		Duration:          s.Duration,
		Seeking:           s.Seeking,
		Buffering:         s.Buffering,
		Stalled:           s.Stalled,
		Fullscreen:        s.Fullscreen,
		PiP:               s.PiP,
		Loop:              s.Loop,
		ShowRemainingTime: s.ShowRemainingTime,
		Error:             s.Err,
		RetryCount:        s.RetryCount,
		NetworkState:      s.NetworkState,
		ReadyState:        s.ReadyState.String(),
	}
}

// SetPlaying sets the playing flag.
func (s *State) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Playing = playing
}

// SetVolume clamps and stores the volume level.
func (s *State) SetVolume(v float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Volume = clamp01(v)
	return s.Volume
}

// ToggleMute flips the mute flag and returns the new value.
func (s *State) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Muted = !s.Muted
	return s.Muted
}

// SetPlaybackRate snaps the rate to the ladder and stores it.
func (s *State) SetPlaybackRate(r float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PlaybackRate = snapRate(r)
	return s.PlaybackRate
}

// SetProgress stores played/loaded fractions, clamped to [0,1]. Forward
// progress disproves staleness, so the stalled flag is cleared.
func (s *State) SetProgress(played, loaded float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Played = clamp01(played)
	s.Loaded = clamp01(loaded)
	s.Stalled = false
}

// SetDuration stores the media duration in seconds.
func (s *State) SetDuration(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.Duration = d
}

// SetSeeking sets the seeking flag.
func (s *State) SetSeeking(seeking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Seeking = seeking
}

// SetBuffering sets the buffering flag. Clearing it also clears stalled.
func (s *State) SetBuffering(buffering bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Buffering = buffering
	if !buffering {
		s.Stalled = false
	}
}

// SetStalled sets the stalled flag.
func (s *State) SetStalled(stalled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stalled = stalled
}

// SetFullscreen mirrors the document-level fullscreen state.
func (s *State) SetFullscreen(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fullscreen = active
}

// SetPiP mirrors the document-level picture-in-picture state.
func (s *State) SetPiP(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PiP = active
}

// ToggleLoop flips the loop flag and returns the new value.
func (s *State) ToggleLoop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Loop = !s.Loop
	return s.Loop
}

// ToggleRemainingTime flips the remaining-time display flag.
func (s *State) ToggleRemainingTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ShowRemainingTime = !s.ShowRemainingTime
	return s.ShowRemainingTime
}

// SetError records a playback failure.
func (s *State) SetError(err *Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// ClearError removes any recorded failure.
func (s *State) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = nil
}

// Error returns the currently recorded failure, if any.
func (s *State) Error() *Error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Err
}

// SetRetryCount stores the retry counter.
func (s *State) SetRetryCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RetryCount = n
}

// IncRetry increments the retry counter and returns the new value.
func (s *State) IncRetry() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RetryCount++
	return s.RetryCount
}

// Retries returns the current retry counter.
func (s *State) Retries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RetryCount
}

// SetNetworkState stores the normalized network load state.
func (s *State) SetNetworkState(ns string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NetworkState = ns
}

// SetReadyState stores the element ready state.
func (s *State) SetReadyState(rs media.ReadyState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadyState = rs
}

// MarkEnded records the end of playback.
func (s *State) MarkEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Playing = false
	s.Played = 1
}

// Reset returns every transient field to its initial value, keeping the
// persisted preferences (volume, mute, rate) and UI toggles intact.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Playing = false
	s.Played = 0
	s.Loaded = 0
	s.Duration = 0
	s.Seeking = false
	s.Buffering = false
	s.Stalled = false
	s.Err = nil
	s.RetryCount = 0
	s.NetworkState = NetworkIdle
	s.ReadyState = media.HaveNothing
}
