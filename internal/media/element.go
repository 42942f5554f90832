// Package media defines the playback element contract the controller drives.
package media

// ReadyState reports how much of the current source an element has available,
// mirroring the standard media element numbering.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// String returns the snapshot-facing name of the ready state.
func (s ReadyState) String() string {
	switch s {
	case HaveMetadata:
		return "metadata"
	case HaveCurrentData:
		return "current-data"
	case HaveFutureData:
		return "future-data"
	case HaveEnoughData:
		return "enough-data"
	default:
		return "nothing"
	}
}

// Native element error codes, matching the standard MediaError numbering.
const (
	ErrCodeAborted         = 1
	ErrCodeNetwork         = 2
	ErrCodeDecode          = 3
	ErrCodeSrcNotSupported = 4
)

// TimeRange is a buffered interval in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

// BufferedEnd returns the furthest buffered position across ranges,
// or 0 when nothing is buffered.
func BufferedEnd(ranges []TimeRange) float64 {
	var end float64
	for _, r := range ranges {
		if r.End > end {
			end = r.End
		}
	}
	return end
}

// Element is the narrow contract a playback backend must satisfy. The
// controller exclusively owns the element for the duration of its attachment;
// nothing else should call these methods while a controller is bound.
type Element interface {
	Play() error
	Pause() error

	CurrentTime() float64
	SetCurrentTime(seconds float64) error
	Duration() float64
	Buffered() []TimeRange
	ReadyState() ReadyState
	Paused() bool
	Ended() bool

	SetVolume(v float64) error
	SetMuted(muted bool) error
	SetPlaybackRate(rate float64) error
	SetLoop(loop bool) error

	Source() string
	SetSource(uri string) error
	Load() error
}
