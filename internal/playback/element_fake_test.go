package playback_test

import (
	"errors"
	"sync"

	"github.com/Haven-hvn/haven-player-sub000/internal/media"
)

var (
	errPlayRejected     = errors.New("play rejected")
	errPermissionDenied = errors.New("permission denied")
)

// fakeElement is a scriptable media.Element for controller tests.
type fakeElement struct {
	mu sync.Mutex

	playing     bool
	ended       bool
	currentTime float64
	duration    float64
	buffered    []media.TimeRange
	readyState  media.ReadyState

	volume float64
	muted  bool
	rate   float64
	loop   bool
	src    string

	playErr   error
	loadCalls int

	// onLoad runs on every Load call with the current source, outside the
	// element lock. Tests use it to simulate the loadeddata event.
	onLoad func(src string)
}

func newFakeElement() *fakeElement {
	return &fakeElement{volume: 1, rate: 1}
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeElement) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	return nil
}

func (f *fakeElement) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentTime
}

func (f *fakeElement) SetCurrentTime(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentTime = seconds
	return nil
}

func (f *fakeElement) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeElement) Buffered() []media.TimeRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buffered
}

func (f *fakeElement) ReadyState() media.ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyState
}

func (f *fakeElement) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.playing
}

func (f *fakeElement) Ended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended
}

func (f *fakeElement) SetVolume(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
	return nil
}

func (f *fakeElement) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
	return nil
}

func (f *fakeElement) SetPlaybackRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = rate
	return nil
}

func (f *fakeElement) SetLoop(loop bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loop = loop
	return nil
}

func (f *fakeElement) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src
}

func (f *fakeElement) SetSource(uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = uri
	return nil
}

func (f *fakeElement) Load() error {
	f.mu.Lock()
	f.loadCalls++
	src := f.src
	hook := f.onLoad
	f.mu.Unlock()

	if hook != nil {
		hook(src)
	}
	return nil
}

func (f *fakeElement) loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls
}

func (f *fakeElement) position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentTime
}

func (f *fakeElement) setPosition(pos float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentTime = pos
}

func (f *fakeElement) appliedVolume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

var _ media.Element = (*fakeElement)(nil)
