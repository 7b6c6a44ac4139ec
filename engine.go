package hxssr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pthm/hxssr/lib/metrics"
	"github.com/pthm/hxssr/lib/negotiate"
	"github.com/pthm/hxssr/lib/reload"
	"github.com/pthm/hxssr/lib/signals"
)

// TracerName is the OpenTelemetry instrumentation name used by the engine.
const TracerName = "github.com/pthm/hxssr"

// HandlerFunc decides what to render for a request.
type HandlerFunc func(r *http.Request) (RenderRequest, error)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLayout sets the layout wrapping full-document responses.
func WithLayout(layout Layout) EngineOption {
	return func(e *Engine) {
		e.layout = layout
	}
}

// WithChannel sets the reload channel. Defaults to reload.Process().
func WithChannel(ch *reload.Channel) EngineOption {
	return func(e *Engine) {
		e.channel = ch
	}
}

// WithHub makes Middleware serve the reload websocket at the reload path.
func WithHub(hub *reload.Hub) EngineOption {
	return func(e *Engine) {
		e.hub = hub
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records responses and errors into m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithOnError replaces the error responder. It must not echo err to the
// client.
func WithOnError(fn func(http.ResponseWriter, *http.Request, error)) EngineOption {
	return func(e *Engine) {
		e.onError = fn
	}
}

// WithDevMode makes the default layout include the reload client, which
// connects to the websocket hub at path (reload.DefaultPath when empty).
func WithDevMode(path string) EngineOption {
	return func(e *Engine) {
		e.devMode = true
		if path == "" {
			path = reload.DefaultPath
		}
		e.reloadPath = path
	}
}

// WithHTMXScript sets the htmx script URL for the default layout.
func WithHTMXScript(src string) EngineOption {
	return func(e *Engine) {
		e.htmxScript = src
	}
}

// Engine turns RenderRequests into HTTP responses: a fragment for HTMX
// requests, a complete document otherwise.
//
//	frags := hxssr.NewFragments().Add("items-list", hxssr.Typed(views.ItemsList))
//	eng := hxssr.NewEngine(frags)
//	mux.Handle("GET /items", eng.Handle(func(r *http.Request) (hxssr.RenderRequest, error) {
//	    return hxssr.Render("items-list", store.Items()).Title("Items"), nil
//	}))
//	http.ListenAndServe(":3000", eng.Middleware(mux))
//
// The reload trigger is added to the first response on each connection
// after a reload, which requires the server to attach a cursor per
// connection (see ConnContext; the Server type does this).
type Engine struct {
	fragments  *Fragments
	layout     Layout
	channel    *reload.Channel
	hub        *reload.Hub
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	onError    func(http.ResponseWriter, *http.Request, error)
	devMode    bool
	reloadPath string
	htmxScript string
}

// NewEngine creates an engine rendering from fragments.
func NewEngine(fragments *Fragments, opts ...EngineOption) *Engine {
	if fragments == nil {
		fragments = NewFragments()
	}
	e := &Engine{
		fragments:  fragments,
		layout:     DefaultLayout,
		channel:    reload.Process(),
		logger:     slog.Default(),
		tracer:     otel.Tracer(TracerName),
		onError:    DefaultOnError,
		reloadPath: reload.DefaultPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultOnError answers 404 for ErrNotFound and 500 for everything else,
// with a generic body.
func DefaultOnError(w http.ResponseWriter, r *http.Request, err error) {
	if IsNotFound(err) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

// Fragments returns the engine's registry.
func (e *Engine) Fragments() *Fragments {
	return e.fragments
}

// Channel returns the reload channel.
func (e *Engine) Channel() *reload.Channel {
	return e.channel
}

// ConnContext is an http.Server ConnContext hook giving each connection its
// reload cursor.
func (e *Engine) ConnContext(ctx context.Context, c net.Conn) context.Context {
	return reload.ConnContext(e.channel)(ctx, c)
}

// Handle adapts fn into a handler. Errors from fn, negotiation or
// rendering go to the error responder.
func (e *Engine) Handle(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := fn(r)
		if err != nil {
			e.Error(w, r, err)
			return
		}
		if err := e.Write(w, r, req); err != nil {
			e.Error(w, r, err)
		}
	})
}

// Error logs err and writes the error response. The cause is never sent to
// the client.
func (e *Engine) Error(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	kind := errorKind(err)
	e.metrics.ObserveError(kind)
	if IsNotFound(err) {
		e.logger.Debug("not found", "path", r.URL.Path, "error", err)
	} else {
		e.logger.Error("request failed", "path", r.URL.Path, "kind", kind, "error", err)
	}
	e.onError(w, r, err)
}

// Negotiate decides the response for req without writing anything. A
// pending reload is reported in the plan but not consumed.
func (e *Engine) Negotiate(r *http.Request, req RenderRequest) (negotiate.Plan, error) {
	var obs negotiate.ReloadObserver
	if cur := reload.CursorFrom(r.Context()); cur != nil {
		obs = peekObserver{cur}
	}
	return negotiate.Negotiate(Signals(r), req, e.fragments, obs)
}

// Write negotiates and writes req. On error nothing has been written and
// the caller decides the response (Handle uses Error).
//
// The body is rendered into a buffer first, so a failed render or a client
// that went away never produces a partial response.
func (e *Engine) Write(w http.ResponseWriter, r *http.Request, req RenderRequest) (err error) {
	ctx, span := e.tracer.Start(r.Context(), "hxssr.negotiate",
		trace.WithAttributes(
			attribute.String("hxssr.fragment", req.GetFragmentID()),
			attribute.String("http.route", r.URL.Path),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	start := time.Now()

	plan, err := e.Negotiate(r, req)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("hxssr.mode", plan.Mode.String()),
		attribute.Int("hxssr.oob_count", len(plan.OutOfBand)),
	)

	var buf bytes.Buffer
	if err := e.render(ctx, &buf, plan); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if plan.Reloaded {
		// Only the response that consumes the reload carries the trigger.
		// A concurrent stream on the same connection may have taken it
		// while this one rendered.
		if cur := reload.CursorFrom(r.Context()); cur == nil || !cur.Advance() {
			if plan, err = negotiate.Negotiate(Signals(r), req, e.fragments, nil); err != nil {
				return err
			}
		}
	}
	if plan.Reloaded {
		e.metrics.ObserveReloadInjected()
	}
	span.SetAttributes(attribute.Bool("hxssr.reloaded", plan.Reloaded))
	if st := responseStateFrom(r.Context()); st != nil {
		st.handled = true
	}

	h := w.Header()
	signals.Encode(plan.Headers, h)
	h.Add("Vary", "HX-Request")
	h.Set("Content-Type", "text/html; charset=utf-8")

	if plan.Mode == negotiate.FullDocument && req.GetRedirect() != "" {
		h.Set("Location", req.GetRedirect())
		w.WriteHeader(http.StatusSeeOther)
		e.metrics.ObserveResponse(plan.Mode.String(), time.Since(start))
		return nil
	}

	w.WriteHeader(plan.Status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		e.logger.Debug("writing response", "path", r.URL.Path, "error", err)
	}
	e.metrics.ObserveResponse(plan.Mode.String(), time.Since(start))
	return nil
}

func (e *Engine) render(ctx context.Context, buf *bytes.Buffer, plan negotiate.Plan) error {
	primary, err := e.fragments.Component(plan.PrimaryFragmentID, plan.Model)
	if err != nil {
		return err
	}

	if plan.Mode == negotiate.FullDocument {
		page := PageData{
			Title:      plan.Title,
			Body:       primary,
			Generation: e.channel.Generation(),
			DevMode:    e.devMode,
			ReloadPath: e.reloadPath,
			HTMXScript: e.htmxScript,
		}
		if err := e.layout(page).Render(ctx, buf); err != nil {
			return renderErr(plan.PrimaryFragmentID, err)
		}
		return nil
	}

	if err := primary.Render(ctx, buf); err != nil {
		return renderErr(plan.PrimaryFragmentID, err)
	}
	if plan.Title != "" {
		buf.WriteString("<title>")
		buf.WriteString(html.EscapeString(plan.Title))
		buf.WriteString("</title>")
	}
	for _, o := range plan.OutOfBand {
		if err := e.renderOOB(ctx, buf, o); err != nil {
			return err
		}
	}
	return nil
}

func renderErr(id string, err error) error {
	if IsRenderFailed(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: fragment %q: %w", ErrRenderFailed, id, err)
}

// peekObserver reports a pending reload without consuming it.
type peekObserver struct {
	cur *reload.Cursor
}

func (p peekObserver) Advance() bool { return p.cur.Pending() }

// Middleware decodes the HX-* headers once per request and makes sure
// responses not written by the engine still carry the reload trigger. With
// a hub configured it also answers the reload websocket.
func (e *Engine) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if e.hub != nil && r.URL.Path == e.reloadPath {
			e.hub.ServeHTTP(w, r)
			return
		}

		st := &responseState{}
		ctx := withSignals(r.Context(), signals.FromRequest(r))
		ctx = context.WithValue(ctx, responseStateKey{}, st)

		cur := reload.CursorFrom(ctx)
		if cur == nil {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		rw := &reloadWriter{ResponseWriter: w, cur: cur, state: st, metrics: e.metrics}
		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

type responseStateKey struct{}

// responseState is shared between Middleware and Write for one request.
type responseState struct {
	handled bool
}

func responseStateFrom(ctx context.Context) *responseState {
	st, _ := ctx.Value(responseStateKey{}).(*responseState)
	return st
}

// reloadWriter merges the reload event into HX-Trigger when the headers
// are written, unless the engine already decided.
type reloadWriter struct {
	http.ResponseWriter
	cur         *reload.Cursor
	state       *responseState
	metrics     *metrics.Metrics
	wroteHeader bool
}

func (w *reloadWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if !w.state.handled && w.cur.Advance() {
		h := w.Header()
		h.Set(signals.HeaderTrigger, signals.MergeTrigger(h.Get(signals.HeaderTrigger),
			signals.Trigger{Name: negotiate.ReloadEvent}))
		w.metrics.ObserveReloadInjected()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *reloadWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *reloadWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets websocket upgrades pass through.
func (w *reloadWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hxssr: %T does not support hijacking", w.ResponseWriter)
	}
	w.wroteHeader = true
	return hj.Hijack()
}

func (w *reloadWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Component renders a single registered fragment outside negotiation, for
// use inside templ layouts.
func (e *Engine) Component(id string, model any) templ.Component {
	c, err := e.fragments.Component(id, model)
	if err != nil {
		return templ.ComponentFunc(func(context.Context, io.Writer) error { return err })
	}
	return c
}
