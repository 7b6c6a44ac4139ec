package hxssrecho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/hxssr"
	"github.com/pthm/hxssr/lib/reload"
)

func newEngine() *hxssr.Engine {
	frags := hxssr.NewFragments().Add("greeting", func(model any) templ.Component {
		return hxssr.Text("hello " + model.(string))
	})
	return hxssr.NewEngine(frags, hxssr.WithChannel(reload.NewChannel()))
}

func TestHandleFragment(t *testing.T) {
	eng := newEngine()
	e := echo.New()
	Mount(e, eng)
	e.GET("/hello/:name", Handle(eng, func(c echo.Context) (hxssr.RenderRequest, error) {
		return hxssr.Render("greeting", c.Param("name")), nil
	}))

	result := hxssr.NewTestRequest(http.MethodGet, "/hello/ann").Execute(e)
	if result.HTML != "hello ann" {
		t.Errorf("body = %q, want %q", result.HTML, "hello ann")
	}
}

func TestHandleFullDocument(t *testing.T) {
	eng := newEngine()
	e := echo.New()
	Mount(e, eng)
	e.GET("/hello/:name", Handle(eng, func(c echo.Context) (hxssr.RenderRequest, error) {
		return hxssr.Render("greeting", c.Param("name")).Title("Hi"), nil
	}))

	result := hxssr.NewTestRequest(http.MethodGet, "/hello/ann").AsBrowser().Execute(e)
	if !result.IsFullDocument() || !result.HTMLContains("hello ann") {
		t.Errorf("expected a full document, got %q", result.HTML)
	}
}

func TestHandleError(t *testing.T) {
	eng := newEngine()
	e := echo.New()
	Mount(e, eng)
	e.GET("/missing", Handle(eng, func(c echo.Context) (hxssr.RenderRequest, error) {
		return hxssr.RenderRequest{}, hxssr.ErrNotFound
	}))

	result := hxssr.TestGet(e, "/missing")
	if result.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", result.StatusCode)
	}
}

func TestMiddlewareAddsReloadTrigger(t *testing.T) {
	ch := reload.NewChannel()
	frags := hxssr.NewFragments()
	eng := hxssr.NewEngine(frags, hxssr.WithChannel(ch))
	e := echo.New()
	Mount(e, eng)
	e.GET("/plain", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	ctx := reload.WithCursor(context.Background(), ch.Subscribe())
	ch.Publish()

	result := hxssr.NewTestRequest(http.MethodGet, "/plain").WithContext(ctx).Execute(e)
	if !result.HasEvent("hxssr:reload") {
		t.Errorf("events = %v, want hxssr:reload", result.TriggeredEvents)
	}
}

func TestMountGroup(t *testing.T) {
	eng := newEngine()
	e := echo.New()
	g := e.Group("/app")
	MountGroup(g, eng)
	g.GET("/hello", Handle(eng, func(c echo.Context) (hxssr.RenderRequest, error) {
		return hxssr.Render("greeting", "group"), nil
	}))

	result := hxssr.TestGet(e, "/app/hello")
	if result.HTML != "hello group" {
		t.Errorf("body = %q", result.HTML)
	}
}

func TestMountWithHub(t *testing.T) {
	eng := newEngine()
	hub := reload.NewHub(reload.NewChannel())
	e := echo.New()
	Mount(e, eng, WithHub(hub))

	// A plain GET is not a websocket upgrade.
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, reload.DefaultPath, nil))
	if rec.Code == http.StatusNotFound {
		t.Error("hub route should be mounted")
	}
}
