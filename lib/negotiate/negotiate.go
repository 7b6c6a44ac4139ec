// Package negotiate decides the shape of a hypermedia response.
//
// Negotiate is a pure function of the request signals, the caller's
// RenderRequest and the reload watermark: it performs no I/O and reads no
// clock, so it is safe to call from any request goroutine.
package negotiate

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/pthm/hxssr/lib/signals"
)

// ReloadEvent is the client event sent after the server has been reloaded.
const ReloadEvent = "hxssr:reload"

// ErrInvalidFragmentReference is returned when a fragment id cannot be
// resolved by the rendering collaborator.
var ErrInvalidFragmentReference = errors.New("hxssr: invalid fragment reference")

// Mode is the response shape.
type Mode int

const (
	// FullDocument is a complete page: layout chrome around the primary
	// fragment, no out-of-band updates.
	FullDocument Mode = iota
	// Fragment is the primary fragment followed by out-of-band updates, no
	// chrome.
	Fragment
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case FullDocument:
		return "full_document"
	case Fragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Resolver reports whether a fragment id can be rendered.
type Resolver interface {
	Resolve(fragmentID string) bool
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(fragmentID string) bool

// Resolve calls f.
func (f ResolverFunc) Resolve(fragmentID string) bool { return f(fragmentID) }

// ReloadObserver reports, once, that the server generation has moved past
// the caller's watermark. Advance returns true at most once per new
// generation and moves the watermark forward when it does.
type ReloadObserver interface {
	Advance() bool
}

// Plan is the decided response.
type Plan struct {
	Mode              Mode
	PrimaryFragmentID string
	Model             any
	Title             string
	OutOfBand         []OutOfBand
	Headers           signals.HeaderSet
	Status            int
	Reloaded          bool
}

// Negotiate builds the Plan for one request.
//
// Requests without the hypermedia marker, and history-restore requests, get
// FullDocument with no out-of-band entries whatever req asked for. Other
// hypermedia requests get Fragment with req's out-of-band entries in the
// caller's order. Navigation headers are only set when req asked for them.
//
// When obs advances, the reload event is appended to HX-Trigger after the
// caller's own events, in either mode. obs may be nil. A nil resolver
// accepts every id.
func Negotiate(sig signals.RequestSignals, req RenderRequest, resolver Resolver, obs ReloadObserver) (Plan, error) {
	if err := resolve(resolver, req.fragmentID); err != nil {
		return Plan{}, err
	}

	plan := Plan{
		PrimaryFragmentID: req.fragmentID,
		Model:             req.model,
		Title:             req.title,
		Status:            req.status,
	}
	if plan.Status == 0 {
		plan.Status = http.StatusOK
	}

	if sig.WantsFullDocument() {
		plan.Mode = FullDocument
	} else {
		plan.Mode = Fragment
		for _, o := range req.oob {
			if err := resolve(resolver, o.FragmentID); err != nil {
				return Plan{}, fmt.Errorf("out-of-band %s: %w", o.Selector, err)
			}
		}
		plan.OutOfBand = slices.Clone(req.oob)
	}

	hs := navigationHeaders(req)
	for _, h := range req.headers {
		hs = hs.Set(h.Name, h.Value)
	}

	triggers := signals.MergeTrigger(hs.Get(signals.HeaderTrigger), req.triggers...)
	if obs != nil && obs.Advance() {
		triggers = signals.MergeTrigger(triggers, signals.Trigger{Name: ReloadEvent})
		plan.Reloaded = true
	}
	if triggers != "" {
		hs = hs.Set(signals.HeaderTrigger, triggers)
	}
	if v := signals.MergeTrigger(hs.Get(signals.HeaderTriggerAfterSettle), req.afterSettle...); v != "" {
		hs = hs.Set(signals.HeaderTriggerAfterSettle, v)
	}
	if v := signals.MergeTrigger(hs.Get(signals.HeaderTriggerAfterSwap), req.afterSwap...); v != "" {
		hs = hs.Set(signals.HeaderTriggerAfterSwap, v)
	}

	plan.Headers = hs
	return plan, nil
}

// IsInvalidFragment reports whether err is an unresolved fragment error.
func IsInvalidFragment(err error) bool {
	return errors.Is(err, ErrInvalidFragmentReference)
}

func resolve(resolver Resolver, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty fragment id", ErrInvalidFragmentReference)
	}
	if resolver != nil && !resolver.Resolve(id) {
		return fmt.Errorf("%w: %q", ErrInvalidFragmentReference, id)
	}
	return nil
}

func navigationHeaders(req RenderRequest) signals.HeaderSet {
	var hs signals.HeaderSet
	if req.redirect != "" {
		hs = hs.Set(signals.HeaderRedirect, req.redirect)
	}
	if req.location != "" {
		hs = hs.Set(signals.HeaderLocation, req.location)
	}
	if req.refresh {
		hs = hs.Set(signals.HeaderRefresh, "true")
	}
	if req.pushURL != "" {
		hs = hs.Set(signals.HeaderPushURL, req.pushURL)
	}
	if req.replaceURL != "" {
		hs = hs.Set(signals.HeaderReplaceURL, req.replaceURL)
	}
	if req.retarget != "" {
		hs = hs.Set(signals.HeaderRetarget, req.retarget)
	}
	if req.reselect != "" {
		hs = hs.Set(signals.HeaderReselect, req.reselect)
	}
	if req.reswap != "" {
		hs = hs.Set(signals.HeaderReswap, req.reswap)
	}
	return hs
}
