package playback

import (
	"fmt"
	"time"

	"github.com/Haven-hvn/haven-player-sub000/internal/media"
)

// ErrorType classifies a playback failure.
type ErrorType string

const (
	ErrAborted ErrorType = "aborted"
	ErrNetwork ErrorType = "network"
	ErrDecode  ErrorType = "decode"
	ErrFormat  ErrorType = "format"
	ErrSource  ErrorType = "source"
	ErrStall   ErrorType = "stall"
	ErrTimeout ErrorType = "timeout"
	ErrUnknown ErrorType = "unknown"
)

// Recoverable reports whether an automatic reload-and-reseek may plausibly
// clear errors of this type. Decode, format and source failures indicate the
// media itself is unusable, not a transient condition.
func (t ErrorType) Recoverable() bool {
	switch t {
	case ErrAborted, ErrNetwork, ErrStall, ErrTimeout:
		return true
	default:
		return false
	}
}

// Error is a classified playback failure.
type Error struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Code        int       `json:"code,omitempty"` // native element error code, 0 if synthesized
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("playback %s: %s", e.Type, e.Message)
}

// NewError builds a synthesized playback error (stall, timeout, source) with
// no native code attached.
func NewError(t ErrorType, message string) *Error {
	return &Error{
		Type:        t,
		Message:     message,
		Recoverable: t.Recoverable(),
		Timestamp:   time.Now(),
	}
}

// Classify maps a native element error code to a typed playback error. The
// mapping is total: any code outside the standard set yields ErrUnknown.
func Classify(code int, message string) *Error {
	var t ErrorType
	switch code {
	case media.ErrCodeAborted:
		t = ErrAborted
	case media.ErrCodeNetwork:
		t = ErrNetwork
	case media.ErrCodeDecode:
		t = ErrDecode
	case media.ErrCodeSrcNotSupported:
		t = ErrFormat
	default:
		t = ErrUnknown
	}

	if message == "" {
		message = defaultMessage(t)
	}

	return &Error{
		Type:        t,
		Message:     message,
		Code:        code,
		Recoverable: t.Recoverable(),
		Timestamp:   time.Now(),
	}
}

func defaultMessage(t ErrorType) string {
	switch t {
	case ErrAborted:
		return "media loading was aborted"
	case ErrNetwork:
		return "a network error interrupted playback"
	case ErrDecode:
		return "the media could not be decoded"
	case ErrFormat:
		return "the media format is not supported"
	case ErrSource:
		return "the media source is missing or inaccessible"
	case ErrStall:
		return "playback stalled while buffering"
	case ErrTimeout:
		return "the media took too long to load"
	default:
		return "an unknown playback error occurred"
	}
}
