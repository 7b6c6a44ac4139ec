package negotiate

import (
	"slices"

	"github.com/pthm/hxssr/lib/signals"
)

// Flash levels for toast notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// FlashFragmentID is the fragment every flash message is rendered with.
// The toast container it appends to is FlashSelector.
const (
	FlashFragmentID = "hxssr:flash"
	FlashSelector   = "#toasts"
)

// Flash is a one-time notification delivered as an out-of-band swap.
type Flash struct {
	Level   string // success, error, warning, info
	Message string
}

// OutOfBand is an extra region updated by the same response.
type OutOfBand struct {
	Selector   string
	Swap       SwapMode
	FragmentID string
	Model      any
}

// RenderRequest is what application code hands to the engine: the fragment
// to render, what else to update, and which HX-* instructions it wants.
//
// RenderRequest is a value builder; every method returns a modified copy and
// never mutates the receiver's slices.
//
//	// Render the items list
//	return negotiate.Render("items-list", items), nil
//
//	// Update a list, append a toast and bump a counter out of band
//	return negotiate.Render("items-list", items).
//	    Flash(negotiate.FlashSuccess, "Saved!").
//	    OOB("#counter", negotiate.SwapInner, "counter-value", len(items)), nil
//
//	// Navigate after a mutation
//	return negotiate.Render("items-list", items).Redirect("/items"), nil
//
// Navigation headers are only ever sent when asked for here.
type RenderRequest struct {
	fragmentID  string
	model       any
	title       string
	oob         []OutOfBand
	triggers    []signals.Trigger
	afterSettle []signals.Trigger
	afterSwap   []signals.Trigger
	redirect    string
	location    string
	refresh     bool
	retarget    string
	reselect    string
	reswap      string
	pushURL     string
	replaceURL  string
	headers     signals.HeaderSet
	status      int
}

// Render starts a request for the given primary fragment and model.
func Render(fragmentID string, model any) RenderRequest {
	return RenderRequest{fragmentID: fragmentID, model: model}
}

// Title sets the document title used when a full page is sent.
func (r RenderRequest) Title(title string) RenderRequest {
	r.title = title
	return r
}

// OOB adds an out-of-band update. Entries are emitted in the order they
// were added.
func (r RenderRequest) OOB(selector string, swap SwapMode, fragmentID string, model any) RenderRequest {
	r.oob = append(slices.Clip(r.oob), OutOfBand{
		Selector:   selector,
		Swap:       swap,
		FragmentID: fragmentID,
		Model:      model,
	})
	return r
}

// Flash adds a toast notification, rendered as an out-of-band append to
// FlashSelector. Multiple flashes keep their order.
func (r RenderRequest) Flash(level, message string) RenderRequest {
	return r.OOB(FlashSelector, SwapBeforeEnd, FlashFragmentID, Flash{Level: level, Message: message})
}

// Trigger emits a client event via HX-Trigger. Detail, if given, becomes
// evt.detail on the client.
func (r RenderRequest) Trigger(event string, detail ...any) RenderRequest {
	r.triggers = append(slices.Clip(r.triggers), newTrigger(event, detail))
	return r
}

// TriggerAfterSettle emits a client event via HX-Trigger-After-Settle.
func (r RenderRequest) TriggerAfterSettle(event string, detail ...any) RenderRequest {
	r.afterSettle = append(slices.Clip(r.afterSettle), newTrigger(event, detail))
	return r
}

// TriggerAfterSwap emits a client event via HX-Trigger-After-Swap.
func (r RenderRequest) TriggerAfterSwap(event string, detail ...any) RenderRequest {
	r.afterSwap = append(slices.Clip(r.afterSwap), newTrigger(event, detail))
	return r
}

// Redirect asks the client to navigate to url (HX-Redirect). Plain browser
// requests get a 303 See Other instead.
func (r RenderRequest) Redirect(url string) RenderRequest {
	r.redirect = url
	return r
}

// Location asks for a client-side navigation without a full reload
// (HX-Location).
func (r RenderRequest) Location(url string) RenderRequest {
	r.location = url
	return r
}

// Refresh asks the client to reload the whole page (HX-Refresh).
func (r RenderRequest) Refresh() RenderRequest {
	r.refresh = true
	return r
}

// Retarget swaps the response into a different element (HX-Retarget).
func (r RenderRequest) Retarget(selector string) RenderRequest {
	r.retarget = selector
	return r
}

// Reselect picks part of the response to swap in (HX-Reselect).
func (r RenderRequest) Reselect(selector string) RenderRequest {
	r.reselect = selector
	return r
}

// Reswap overrides the swap strategy (HX-Reswap). The value may carry
// modifiers, e.g. "innerHTML scroll:top".
func (r RenderRequest) Reswap(swap string) RenderRequest {
	r.reswap = swap
	return r
}

// PushURL pushes url onto browser history (HX-Push-Url).
func (r RenderRequest) PushURL(url string) RenderRequest {
	r.pushURL = url
	return r
}

// ReplaceURL replaces the current history entry (HX-Replace-Url).
func (r RenderRequest) ReplaceURL(url string) RenderRequest {
	r.replaceURL = url
	return r
}

// Header sets a custom response header. Headers keep the order of the
// first Header call for each name.
func (r RenderRequest) Header(key, value string) RenderRequest {
	r.headers = r.headers.Clone().Set(key, value)
	return r
}

// Status sets the HTTP status code. Zero means 200.
func (r RenderRequest) Status(code int) RenderRequest {
	r.status = code
	return r
}

// GetFragmentID returns the primary fragment id.
func (r RenderRequest) GetFragmentID() string { return r.fragmentID }

// GetModel returns the primary model.
func (r RenderRequest) GetModel() any { return r.model }

// GetTitle returns the document title.
func (r RenderRequest) GetTitle() string { return r.title }

// GetOutOfBand returns the out-of-band entries in emission order.
func (r RenderRequest) GetOutOfBand() []OutOfBand { return slices.Clone(r.oob) }

// GetTriggers returns the HX-Trigger events.
func (r RenderRequest) GetTriggers() []signals.Trigger { return slices.Clone(r.triggers) }

// GetRedirect returns the redirect URL.
func (r RenderRequest) GetRedirect() string { return r.redirect }

// GetRetarget returns the retarget selector.
func (r RenderRequest) GetRetarget() string { return r.retarget }

// GetHeaders returns the custom headers.
func (r RenderRequest) GetHeaders() signals.HeaderSet { return r.headers.Clone() }

// GetStatus returns the HTTP status code (0 means not set, use default 200).
func (r RenderRequest) GetStatus() int { return r.status }

func newTrigger(event string, detail []any) signals.Trigger {
	t := signals.Trigger{Name: event}
	if len(detail) > 0 {
		t.Detail = detail[0]
	}
	return t
}
