package hxssr

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/hxssr/lib/reload"
)

// DefaultHTMXScript is the htmx build DefaultLayout loads.
const DefaultHTMXScript = "https://unpkg.com/htmx.org@2.0.4"

// PageData is what a Layout receives for a full-document response.
type PageData struct {
	Title string
	// Body is the primary fragment.
	Body templ.Component
	// Generation is the reload generation the page was rendered at.
	Generation uint64
	// DevMode is set when live reload is enabled.
	DevMode    bool
	ReloadPath string
	HTMXScript string
}

// Layout wraps the primary fragment into a complete document.
type Layout func(PageData) templ.Component

// DefaultLayout emits a minimal HTML5 document with htmx, the toast
// container and, in dev mode, the reload client.
func DefaultLayout(p PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		script := p.HTMXScript
		if script == "" {
			script = DefaultHTMXScript
		}

		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>`+html.EscapeString(p.Title)+`</title>`+
			`<script src="`+html.EscapeString(script)+`"></script>`+
			`</head><body>`); err != nil {
			return err
		}
		if p.Body != nil {
			if err := p.Body.Render(ctx, w); err != nil {
				return err
			}
		}
		if err := ToastContainer().Render(ctx, w); err != nil {
			return err
		}
		if p.DevMode {
			if _, err := io.WriteString(w, reload.Script(p.ReloadPath, p.Generation)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
