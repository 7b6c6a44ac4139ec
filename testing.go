package hxssr

import (
	"bytes"
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/pthm/hxssr/lib/signals"
)

// TestResult holds a recorded response for assertions.
//
// Provides convenience methods for asserting on HTML content, headers,
// status codes, events, flashes and redirects.
type TestResult struct {
	HTML            string
	StatusCode      int
	Headers         http.Header
	TriggeredEvents []string
	Flashes         []Flash
	RedirectURL     string
}

// TestFragment renders one registered fragment without HTTP.
//
//	result, err := hxssr.TestFragment(frags, "items-list", items)
//	if !result.HTMLContains("<li>milk</li>") {
//	    t.Fatal("missing item")
//	}
func TestFragment(frags *Fragments, id string, model any) (*TestResult, error) {
	return TestFragmentWithContext(context.Background(), frags, id, model)
}

// TestFragmentWithContext is TestFragment with a caller-supplied context.
func TestFragmentWithContext(ctx context.Context, frags *Fragments, id string, model any) (*TestResult, error) {
	var buf bytes.Buffer
	if err := frags.Render(ctx, id, model, &buf); err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       buf.String(),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
		Flashes:    parseFlashesFromHTML(buf.String()),
	}, nil
}

// TestGet sends an HTMX GET to h.
func TestGet(h http.Handler, target string) *TestResult {
	return NewTestRequest(http.MethodGet, target).Execute(h)
}

// TestPost sends an HTMX form POST to h.
//
//	result := hxssr.TestPost(handler, "/items", map[string]string{"name": "milk"})
func TestPost(h http.Handler, target string, formData map[string]string) *TestResult {
	return NewTestRequest(http.MethodPost, target).WithFormValues(formData).Execute(h)
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HTMLInOrder checks that each substring appears after the previous one.
func (r *TestResult) HTMLInOrder(substrs ...string) bool {
	rest := r.HTML
	for _, s := range substrs {
		i := strings.Index(rest, s)
		if i < 0 {
			return false
		}
		rest = rest[i+len(s):]
	}
	return true
}

// IsFullDocument reports whether the body is a complete HTML document.
func (r *TestResult) IsFullDocument() bool {
	return strings.HasPrefix(strings.TrimSpace(r.HTML), "<!DOCTYPE html>")
}

// OOBTargets returns the hx-swap-oob values in body order, e.g.
// "innerHTML:#counter".
func (r *TestResult) OOBTargets() []string {
	const attr = `hx-swap-oob="`
	var out []string
	rest := r.HTML
	for {
		i := strings.Index(rest, attr)
		if i < 0 {
			return out
		}
		rest = rest[i+len(attr):]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return out
		}
		out = append(out, html.UnescapeString(rest[:end]))
		rest = rest[end:]
	}
}

// HasEvent checks if an event was triggered.
func (r *TestResult) HasEvent(event string) bool {
	for _, e := range r.TriggeredEvents {
		if e == event {
			return true
		}
	}
	return false
}

// EventsInOrder checks that the named events were triggered in this order.
func (r *TestResult) EventsInOrder(events ...string) bool {
	i := 0
	for _, e := range r.TriggeredEvents {
		if i < len(events) && e == events[i] {
			i++
		}
	}
	return i == len(events)
}

// HasFlash checks if a flash message was set with the given level and message.
func (r *TestResult) HasFlash(level, message string) bool {
	for _, f := range r.Flashes {
		if f.Level == level && f.Message == message {
			return true
		}
	}
	return false
}

// WasRedirected checks if the response was a redirect.
func (r *TestResult) WasRedirected() bool {
	return r.RedirectURL != ""
}

// RedirectedTo checks if the response was redirected to a specific URL.
func (r *TestResult) RedirectedTo(url string) bool {
	return r.RedirectURL == url
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// HasHeaderKey checks if a header is present at all.
func (r *TestResult) HasHeaderKey(key string) bool {
	_, ok := r.Headers[http.CanonicalHeaderKey(key)]
	return ok
}

// GetHeader returns the value of a header.
func (r *TestResult) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// parseFlashesFromHTML extracts toasts rendered by the flash fragment.
// Looks for patterns like: <div class="toast toast-success" ...>message</div>
func parseFlashesFromHTML(body string) []Flash {
	var flashes []Flash

	const prefix = `<div class="toast toast-`
	idx := 0
	for {
		start := strings.Index(body[idx:], prefix)
		if start == -1 {
			break
		}
		start += idx + len(prefix)

		levelEnd := strings.Index(body[start:], `"`)
		if levelEnd == -1 {
			break
		}
		level := body[start : start+levelEnd]

		tagEnd := strings.Index(body[start:], ">")
		if tagEnd == -1 {
			break
		}
		contentStart := start + tagEnd + 1

		contentEnd := strings.Index(body[contentStart:], "</div>")
		if contentEnd == -1 {
			break
		}
		message := html.UnescapeString(body[contentStart : contentStart+contentEnd])

		flashes = append(flashes, Flash{
			Level:   level,
			Message: message,
		})

		idx = contentStart + contentEnd
	}

	return flashes
}

// TestRequestBuilder provides a fluent interface for building test requests.
// Requests are HTMX requests unless AsBrowser is called.
//
//	result := hxssr.NewTestRequest("POST", "/items").
//	    WithFormData("name", "milk").
//	    WithHeader("HX-Target", "items").
//	    Execute(handler)
type TestRequestBuilder struct {
	method   string
	url      string
	formData map[string]string
	headers  map[string]string
	ctx      context.Context
	browser  bool
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:   method,
		url:      url,
		formData: make(map[string]string),
		headers:  make(map[string]string),
		ctx:      context.Background(),
	}
}

// WithFormData adds form data to the request.
func (b *TestRequestBuilder) WithFormData(key, value string) *TestRequestBuilder {
	b.formData[key] = value
	return b
}

// WithFormValues adds multiple form values to the request.
func (b *TestRequestBuilder) WithFormValues(data map[string]string) *TestRequestBuilder {
	for k, v := range data {
		b.formData[k] = v
	}
	return b
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// AsBrowser drops the HX-Request header.
func (b *TestRequestBuilder) AsBrowser() *TestRequestBuilder {
	b.browser = true
	return b
}

// AsHistoryRestore marks the request as an HTMX history restore.
func (b *TestRequestBuilder) AsHistoryRestore() *TestRequestBuilder {
	b.headers[signals.KindHistoryRestore.Header()] = "true"
	return b
}

// Build returns the *http.Request without executing it.
func (b *TestRequestBuilder) Build() *http.Request {
	form := url.Values{}
	for k, v := range b.formData {
		form.Set(k, v)
	}

	req := httptest.NewRequest(b.method, b.url, strings.NewReader(form.Encode()))
	req = req.WithContext(b.ctx)

	if !b.browser {
		req.Header.Set(signals.KindRequest.Header(), "true")
	}
	if len(b.formData) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req
}

// Execute runs the request against h.
func (b *TestRequestBuilder) Execute(h http.Handler) *TestResult {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, b.Build())
	return NewTestResult(rec)
}

// NewTestResult parses a recorded response.
func NewTestResult(rec *httptest.ResponseRecorder) *TestResult {
	result := &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}
	if trigger := rec.Header().Get(signals.HeaderTrigger); trigger != "" {
		result.TriggeredEvents = signals.ParseTriggers(trigger)
	}
	if redirect := rec.Header().Get(signals.HeaderRedirect); redirect != "" {
		result.RedirectURL = redirect
	} else if loc := rec.Header().Get("Location"); loc != "" {
		result.RedirectURL = loc
	}
	result.Flashes = parseFlashesFromHTML(result.HTML)
	return result
}
