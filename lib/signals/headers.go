package signals

import (
	"net/http"
	"strings"
)

// Response instruction headers understood by the HTMX client.
const (
	HeaderLocation           = "HX-Location"
	HeaderPushURL            = "HX-Push-Url"
	HeaderRedirect           = "HX-Redirect"
	HeaderRefresh            = "HX-Refresh"
	HeaderReplaceURL         = "HX-Replace-Url"
	HeaderReswap             = "HX-Reswap"
	HeaderRetarget           = "HX-Retarget"
	HeaderReselect           = "HX-Reselect"
	HeaderTrigger            = "HX-Trigger"
	HeaderTriggerAfterSettle = "HX-Trigger-After-Settle"
	HeaderTriggerAfterSwap   = "HX-Trigger-After-Swap"
)

// Header is a single response header instruction.
type Header struct {
	Name  string
	Value string
}

// HeaderSet is an ordered list of response headers.
//
// Order is kept so that two plans built from the same input encode
// identically. Names compare case-insensitively.
type HeaderSet []Header

// Get returns the first value for name, or "".
func (hs HeaderSet) Get(name string) string {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Has reports whether name is present.
func (hs HeaderSet) Has(name string) bool {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// Set replaces the first entry for name in place, dropping any later
// duplicates, or appends when name is absent.
func (hs HeaderSet) Set(name, value string) HeaderSet {
	out := hs[:0:0]
	replaced := false
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			if replaced {
				continue
			}
			h.Value = value
			replaced = true
		}
		out = append(out, h)
	}
	if !replaced {
		out = append(out, Header{Name: name, Value: value})
	}
	return out
}

// Add appends a header, keeping existing values for the same name.
func (hs HeaderSet) Add(name, value string) HeaderSet {
	return append(hs, Header{Name: name, Value: value})
}

// Names returns the header names in order.
func (hs HeaderSet) Names() []string {
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = h.Name
	}
	return names
}

// Clone returns a copy that does not share the backing array.
func (hs HeaderSet) Clone() HeaderSet {
	if hs == nil {
		return nil
	}
	out := make(HeaderSet, len(hs))
	copy(out, hs)
	return out
}

// Encode projects hs onto dst.
//
// Names are canonicalised; repeated names keep their values in order.
// Encode has no other effect.
func Encode(hs HeaderSet, dst http.Header) {
	for _, h := range hs {
		key := http.CanonicalHeaderKey(h.Name)
		dst[key] = append(dst[key], h.Value)
	}
}

// ToHTTP returns a fresh http.Header holding hs.
func ToHTTP(hs HeaderSet) http.Header {
	dst := make(http.Header, len(hs))
	Encode(hs, dst)
	return dst
}
