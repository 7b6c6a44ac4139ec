// Package signals decodes the HTMX request headers into typed values and
// projects response instructions back onto an http.Header.
//
// Raw header maps stop here: everything deeper in hxssr works on
// RequestSignals and HeaderSet.
package signals

import (
	"net/http"
	"strings"
)

// Kind identifies one of the recognised HTMX request headers.
type Kind int

const (
	KindRequest Kind = iota
	KindTarget
	KindTriggerName
	KindTriggerID
	KindBoosted
	KindCurrentURL
	KindHistoryRestore
	KindPrompt
)

var requestHeaderNames = [...]string{
	KindRequest:        "HX-Request",
	KindTarget:         "HX-Target",
	KindTriggerName:    "HX-Trigger-Name",
	KindTriggerID:      "HX-Trigger",
	KindBoosted:        "HX-Boosted",
	KindCurrentURL:     "HX-Current-URL",
	KindHistoryRestore: "HX-History-Restore-Request",
	KindPrompt:         "HX-Prompt",
}

// Header returns the wire name of the header.
func (k Kind) Header() string {
	if k < 0 || int(k) >= len(requestHeaderNames) {
		return ""
	}
	return requestHeaderNames[k]
}

// String returns the wire name of the header.
func (k Kind) String() string {
	if h := k.Header(); h != "" {
		return h
	}
	return "unknown"
}

// Kinds returns every recognised request header kind.
func Kinds() []Kind {
	kinds := make([]Kind, len(requestHeaderNames))
	for i := range requestHeaderNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// RequestSignals is the typed view of the HTMX headers on one request.
//
// Empty strings mean the header was absent. The zero value is the
// conservative default: a plain browser request that must receive a
// complete document.
type RequestSignals struct {
	Hypermedia     bool   // HX-Request: true
	Boosted        bool   // HX-Boosted: true
	HistoryRestore bool   // HX-History-Restore-Request: true
	Target         string // HX-Target, id of the element being swapped
	TriggerName    string // HX-Trigger-Name
	TriggerID      string // HX-Trigger
	CurrentURL     string // HX-Current-URL
	Prompt         string // HX-Prompt
}

// Decode extracts RequestSignals from request headers.
//
// Decode never fails. Boolean markers are only true for the literal value
// "true"; anything else, including a malformed value, reads as false.
func Decode(h http.Header) RequestSignals {
	if h == nil {
		return RequestSignals{}
	}
	return RequestSignals{
		Hypermedia:     flag(h, KindRequest),
		Boosted:        flag(h, KindBoosted),
		HistoryRestore: flag(h, KindHistoryRestore),
		Target:         value(h, KindTarget),
		TriggerName:    value(h, KindTriggerName),
		TriggerID:      value(h, KindTriggerID),
		CurrentURL:     value(h, KindCurrentURL),
		Prompt:         value(h, KindPrompt),
	}
}

// FromRequest is shorthand for Decode(r.Header).
func FromRequest(r *http.Request) RequestSignals {
	if r == nil {
		return RequestSignals{}
	}
	return Decode(r.Header)
}

// HasTarget reports whether the client named a target element.
func (s RequestSignals) HasTarget() bool { return s.Target != "" }

// HasTrigger reports whether the client named the triggering element.
func (s RequestSignals) HasTrigger() bool { return s.TriggerName != "" || s.TriggerID != "" }

// WantsFullDocument reports whether a complete page must be sent.
//
// History restores carry HX-Request but ask for the whole page because the
// client's history cache missed.
func (s RequestSignals) WantsFullDocument() bool {
	return !s.Hypermedia || s.HistoryRestore
}

func flag(h http.Header, k Kind) bool {
	return strings.EqualFold(strings.TrimSpace(h.Get(k.Header())), "true")
}

func value(h http.Header, k Kind) string {
	return strings.TrimSpace(h.Get(k.Header()))
}
