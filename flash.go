package hxssr

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/hxssr/lib/negotiate"
)

// Flash levels for toast notifications.
const (
	FlashSuccess = negotiate.FlashSuccess
	FlashError   = negotiate.FlashError
	FlashWarning = negotiate.FlashWarning
	FlashInfo    = negotiate.FlashInfo
)

// Flash is a one-time notification message.
//
// Flash messages are rendered as out-of-band swaps that append to the
// #toasts container. Toasts carry data-auto-dismiss so a small script can
// remove them after a delay (milliseconds).
//
//	return hxssr.Render("items-list", items).Flash(hxssr.FlashSuccess, "Item saved!"), nil
//
// Multiple flashes can be returned from a single handler; each appears as a
// separate toast. Browser (non-HTMX) requests drop them with the rest of
// the out-of-band updates.
type Flash = negotiate.Flash

// flashFragment renders one toast. It is registered in every Fragments
// under negotiate.FlashFragmentID.
func flashFragment(model any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		f, ok := model.(Flash)
		if !ok {
			return fmt.Errorf("flash model is %T, want hxssr.Flash", model)
		}
		_, err := io.WriteString(w, `<div class="toast toast-`+html.EscapeString(f.Level)+
			`" data-auto-dismiss="3000">`+html.EscapeString(f.Message)+`</div>`)
		return err
	})
}

// ToastContainer returns a templ component for the toast container.
//
// Add this to your layout template (typically near the end of <body>):
//
//	@hxssr.ToastContainer()
//
// DefaultLayout includes it.
func ToastContainer() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div id="toasts" class="toast-container"></div>`)
		return err
	})
}
