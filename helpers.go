package hxssr

import (
	"context"
	"net/http"

	"github.com/a-h/templ"

	"github.com/pthm/hxssr/lib/signals"
)

type signalsKey struct{}

// Signals returns the request's decoded HX-* headers. Requests that went
// through Engine.Middleware are decoded once; others are decoded here.
func Signals(r *http.Request) signals.RequestSignals {
	if sig, ok := r.Context().Value(signalsKey{}).(signals.RequestSignals); ok {
		return sig
	}
	return signals.FromRequest(r)
}

func withSignals(ctx context.Context, sig signals.RequestSignals) context.Context {
	return context.WithValue(ctx, signalsKey{}, sig)
}

// WriteComponent writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. It bypasses negotiation; use Engine.Write for
// responses that should differ between HTMX and browser requests.
func WriteComponent(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX returns true if the request originated from HTMX.
//
// HTMX sends HX-Request: true on all requests. The engine uses this to
// decide between a fragment and a full document.
func IsHTMX(r *http.Request) bool {
	return Signals(r).Hypermedia
}

// IsBoosted returns true if the request is a boosted navigation (hx-boost).
func IsBoosted(r *http.Request) bool {
	return Signals(r).Boosted
}

// IsHistoryRestore returns true when HTMX is restoring a page missing from
// its history cache. Such requests always get a full document.
func IsHistoryRestore(r *http.Request) bool {
	return Signals(r).HistoryRestore
}

// CurrentURL returns the current URL from the HX-Current-URL header.
//
// This is the URL the browser is currently on (not the request URL).
// Returns empty string if header not present (non-HTMX request).
func CurrentURL(r *http.Request) string {
	return Signals(r).CurrentURL
}

// TriggerName returns the name attribute of the element that triggered the request.
//
// Useful for form handlers that need to know which submit button was clicked:
//
//	if hxssr.TriggerName(r) == "save-draft" {
//	    // Handle draft save
//	}
func TriggerName(r *http.Request) string {
	return Signals(r).TriggerName
}

// TriggerID returns the id attribute of the element that triggered the request.
func TriggerID(r *http.Request) string {
	return Signals(r).TriggerID
}

// TargetID returns the id attribute of the target element (hx-target).
func TargetID(r *http.Request) string {
	return Signals(r).Target
}

// Prompt returns the user's answer to hx-prompt.
func Prompt(r *http.Request) string {
	return Signals(r).Prompt
}
