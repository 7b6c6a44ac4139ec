// Package hxssrecho provides Echo framework integration for hxssr.
//
// Install the engine middleware and return RenderRequests from handlers:
//
//	e := echo.New()
//	hxssrecho.Mount(e, eng)
//	e.GET("/items", hxssrecho.Handle(eng, func(c echo.Context) (hxssr.RenderRequest, error) {
//	    return hxssr.Render("items-list", store.Items()), nil
//	}))
//
// Or on a group with its own middleware:
//
//	g := e.Group("/app", authMiddleware)
//	hxssrecho.MountGroup(g, eng)
package hxssrecho

import (
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/hxssr"
	"github.com/pthm/hxssr/lib/reload"
)

// Option configures Mount and MountGroup.
type Option func(*options)

type options struct {
	hub  *reload.Hub
	path string
}

// WithHub serves the reload websocket on the mounted router.
func WithHub(hub *reload.Hub) Option {
	return func(o *options) {
		o.hub = hub
	}
}

// WithPath sets the websocket path. Defaults to reload.DefaultPath.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// HandlerFunc is an Echo handler returning what to render.
type HandlerFunc func(c echo.Context) (hxssr.RenderRequest, error)

// Mount installs the engine middleware on an Echo instance and, with
// WithHub, the reload websocket route.
//
//	e := echo.New()
//	hxssrecho.Mount(e, eng, hxssrecho.WithHub(hub))
func Mount(e *echo.Echo, eng *hxssr.Engine, opts ...Option) {
	o := newOptions(opts)
	e.Use(Middleware(eng))
	if o.hub != nil {
		e.GET(o.path, echo.WrapHandler(o.hub))
	}
}

// MountGroup installs the engine middleware on an Echo group so the
// group's own middleware (auth, logging) runs first.
func MountGroup(g *echo.Group, eng *hxssr.Engine, opts ...Option) {
	o := newOptions(opts)
	g.Use(Middleware(eng))
	if o.hub != nil {
		g.GET(o.path, echo.WrapHandler(o.hub))
	}
}

func newOptions(opts []Option) *options {
	o := &options{path: reload.DefaultPath}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Middleware adapts Engine.Middleware to Echo.
func Middleware(eng *hxssr.Engine) echo.MiddlewareFunc {
	return echo.WrapMiddleware(eng.Middleware)
}

// Handle adapts fn into an Echo handler. Errors are answered by the
// engine's error responder rather than Echo's, so causes are never echoed.
func Handle(eng *hxssr.Engine, fn HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := fn(c)
		if err != nil {
			eng.Error(c.Response(), c.Request(), err)
			return nil
		}
		return Write(c, eng, req)
	}
}

// Write negotiates and writes req from inside an Echo handler.
func Write(c echo.Context, eng *hxssr.Engine, req hxssr.RenderRequest) error {
	if err := eng.Write(c.Response(), c.Request(), req); err != nil {
		eng.Error(c.Response(), c.Request(), err)
	}
	return nil
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxssrecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	return hxssr.WriteComponent(c.Response(), c.Request(), component)
}
