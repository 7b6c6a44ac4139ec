package hxssr

import "github.com/pthm/hxssr/lib/negotiate"

// SwapMode defines HTMX swap strategies for how response HTML replaces the target.
//
// See https://htmx.org/attributes/hx-swap/ for visual examples.
type SwapMode = negotiate.SwapMode

const (
	SwapOuter       = negotiate.SwapOuter
	SwapInner       = negotiate.SwapInner
	SwapBeforeEnd   = negotiate.SwapBeforeEnd
	SwapAfterEnd    = negotiate.SwapAfterEnd
	SwapBeforeBegin = negotiate.SwapBeforeBegin
	SwapAfterBegin  = negotiate.SwapAfterBegin
	SwapDelete      = negotiate.SwapDelete
	SwapNone        = negotiate.SwapNone
)

// RenderRequest describes the response a handler wants. See
// negotiate.RenderRequest for the builder methods.
type RenderRequest = negotiate.RenderRequest

// Render starts a RenderRequest for fragmentID.
//
//	return hxssr.Render("items-list", items).Flash(hxssr.FlashSuccess, "Saved!"), nil
func Render(fragmentID string, model any) RenderRequest {
	return negotiate.Render(fragmentID, model)
}
