package playback

import "time"

// Default configuration values.
const (
	DefaultSkipSeconds        = 10.0
	DefaultFrameRate          = 30.0
	DefaultMaxRetries         = 5
	DefaultRetryDelay         = time.Second
	DefaultMaxRetryDelay      = 30 * time.Second
	DefaultStallTimeout       = 10 * time.Second
	DefaultLoadTimeout        = 30 * time.Second
	DefaultStallCheckInterval = 2 * time.Second
)

// Options is the immutable per-controller configuration. The zero value of
// every field falls back to its default.
type Options struct {
	// SkipSeconds is the jump distance of SkipForward/SkipBackward.
	SkipSeconds float64
	// FrameRate is used only for frame-stepping math (1/FrameRate per step).
	FrameRate float64

	// MaxRetries bounds consecutive automatic recovery attempts.
	MaxRetries int
	// RetryDelay is the backoff base: attempt n waits RetryDelay * 2^n.
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff.
	MaxRetryDelay time.Duration

	// StallTimeout is how long buffering may persist before a stall error
	// is synthesized.
	StallTimeout time.Duration
	// LoadTimeout bounds both initial loading and the recovery reload.
	LoadTimeout time.Duration
	// StallCheckInterval is the sampling period of the stall detector.
	StallCheckInterval time.Duration

	// OnReady fires when the element reports it can play.
	OnReady func()
	// OnError fires whenever a playback error is recorded.
	OnError func(*Error)
	// OnEnded fires when playback reaches the end, unless looping.
	OnEnded func()
	// OnRecovery fires after a successful automatic recovery.
	OnRecovery func()
}

func (o Options) withDefaults() Options {
	if o.SkipSeconds <= 0 {
		o.SkipSeconds = DefaultSkipSeconds
	}
	if o.FrameRate <= 0 {
		o.FrameRate = DefaultFrameRate
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if o.StallTimeout <= 0 {
		o.StallTimeout = DefaultStallTimeout
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = DefaultLoadTimeout
	}
	if o.StallCheckInterval <= 0 {
		o.StallCheckInterval = DefaultStallCheckInterval
	}
	return o
}

// backoffDelay returns min(RetryDelay * 2^attempt, MaxRetryDelay).
func (o Options) backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^attempt overflows a Duration long before attempt reaches 62.
	if attempt > 30 {
		return o.MaxRetryDelay
	}
	d := o.RetryDelay << uint(attempt)
	if d > o.MaxRetryDelay || d <= 0 {
		return o.MaxRetryDelay
	}
	return d
}
