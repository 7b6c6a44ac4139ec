package supervisor

import "errors"

var (
	// ErrSocketHandoffFailed is returned when the listening socket could not
	// be passed to a new instance. The running instance keeps serving.
	ErrSocketHandoffFailed = errors.New("hxssr: socket handoff failed")

	// ErrDrainTimeoutExceeded is logged when connections are still open after
	// the grace period. They are closed.
	ErrDrainTimeoutExceeded = errors.New("hxssr: drain timeout exceeded")

	// ErrHandoffInProgress is returned when a handoff is requested while
	// another one is running or the instance is no longer Idle.
	ErrHandoffInProgress = errors.New("hxssr: handoff already in progress")

	// ErrUnsupported is returned by spawners on platforms without
	// descriptor passing.
	ErrUnsupported = errors.New("hxssr: socket handoff unsupported on this platform")
)

// IsSocketHandoffFailed reports whether err is or wraps ErrSocketHandoffFailed.
func IsSocketHandoffFailed(err error) bool {
	return errors.Is(err, ErrSocketHandoffFailed)
}

// IsDrainTimeoutExceeded reports whether err is or wraps ErrDrainTimeoutExceeded.
func IsDrainTimeoutExceeded(err error) bool {
	return errors.Is(err, ErrDrainTimeoutExceeded)
}
