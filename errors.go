package hxssr

import (
	"errors"

	"github.com/pthm/hxssr/lib/negotiate"
	"github.com/pthm/hxssr/lib/supervisor"
)

// Sentinel errors. Decision and render errors are turned into a generic
// error response at the request boundary; supervisor errors are logged and
// never stop the running server.
var (
	ErrNotFound                 = errors.New("hxssr: resource not found")
	ErrRenderFailed             = errors.New("hxssr: render failed")
	ErrInvalidFragmentReference = negotiate.ErrInvalidFragmentReference
	ErrSocketHandoffFailed      = supervisor.ErrSocketHandoffFailed
	ErrDrainTimeoutExceeded     = supervisor.ErrDrainTimeoutExceeded
)

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRenderFailed checks if err came from rendering a fragment.
func IsRenderFailed(err error) bool {
	return errors.Is(err, ErrRenderFailed)
}

// IsInvalidFragment checks if err names a fragment that is not registered.
func IsInvalidFragment(err error) bool {
	return errors.Is(err, ErrInvalidFragmentReference)
}

// errorKind labels err for metrics and logs.
func errorKind(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case IsInvalidFragment(err):
		return "invalid_fragment"
	case IsRenderFailed(err):
		return "render_failed"
	default:
		return "handler"
	}
}
