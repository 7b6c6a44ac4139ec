// Package hxssr renders server-side HTML for HTMX applications and keeps a
// development server reloading without dropped connections.
//
// A handler returns what it wants to show; the engine decides how much of
// it to send. HTMX requests get the fragment plus any out-of-band updates,
// everything else (first loads, history restores) gets a complete
// document built by the layout.
//
// # Fragments
//
// Fragments are registered once by id and rendered with a model:
//
//	frags := hxssr.NewFragments().
//	    Add("items-list", hxssr.Typed(views.ItemsList)).
//	    Add("counter-value", hxssr.Typed(views.Counter))
//
// Unknown ids are rejected before anything is rendered.
//
// # Responses
//
// Handlers return a RenderRequest:
//
//	eng := hxssr.NewEngine(frags)
//	mux.Handle("POST /items", eng.Handle(func(r *http.Request) (hxssr.RenderRequest, error) {
//	    items := store.Add(r.FormValue("name"))
//	    return hxssr.Render("items-list", items).
//	        OOB("#counter", hxssr.SwapInner, "counter-value", len(items)).
//	        Flash(hxssr.FlashSuccess, "Added").
//	        Trigger("items:changed"), nil
//	}))
//
// Out-of-band entries are rendered in the order given, each wrapped in a
// hx-swap-oob container. Navigation headers (HX-Redirect, HX-Push-Url and
// friends) are only sent when asked for.
//
// Handler errors become a generic error page; the cause is logged and
// never sent to the browser. Return ErrNotFound for a 404.
//
// # Live reload
//
// Every reload bumps a generation counter. The first response on each
// connection after a bump carries the hxssr:reload event in HX-Trigger,
// after the handler's own events. Pages rendered in dev mode also keep a
// websocket to the reload hub and refresh when told to.
//
// Server hands its listening socket to a freshly built binary:
//
//	srv, err := hxssr.NewWithAutoReload(ctx, ":3000", eng.Middleware(mux))
//	...
//	srv.Serve(ctx)
//
// The new process is started with the socket on fd 3 and reports back once
// it accepts. Only then does the old process stop accepting and drain its
// in-flight requests within the grace period. A failed handoff leaves the
// old process serving. The hxssr command wires this to a file watcher.
package hxssr
