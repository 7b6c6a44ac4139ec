package negotiate

// SwapMode defines HTMX swap strategies for how response HTML replaces the target.
//
// Each mode corresponds to an HTMX hx-swap value. Out-of-band entries use
// it as the strategy half of hx-swap-oob="strategy:selector".
//
// See https://htmx.org/attributes/hx-swap/ for visual examples.
type SwapMode string

const (
	// SwapOuter replaces the entire element including its tag (outerHTML).
	// An out-of-band fragment swapped this way must have a root element.
	SwapOuter SwapMode = "outerHTML"

	// SwapInner replaces only the element's contents, preserving the outer tag (innerHTML).
	SwapInner SwapMode = "innerHTML"

	// SwapBeforeEnd appends the response to the end of the target's contents.
	// Used for toasts and growing lists.
	SwapBeforeEnd SwapMode = "beforeend"

	// SwapAfterEnd inserts the response after the target element (as next sibling).
	SwapAfterEnd SwapMode = "afterend"

	// SwapBeforeBegin inserts the response before the target element (as previous sibling).
	SwapBeforeBegin SwapMode = "beforebegin"

	// SwapAfterBegin prepends the response to the start of the target's contents.
	SwapAfterBegin SwapMode = "afterbegin"

	// SwapDelete removes the target element entirely.
	SwapDelete SwapMode = "delete"

	// SwapNone performs no swap.
	SwapNone SwapMode = "none"
)

// Valid reports whether m is one of the known strategies.
func (m SwapMode) Valid() bool {
	switch m {
	case SwapOuter, SwapInner, SwapBeforeEnd, SwapAfterEnd,
		SwapBeforeBegin, SwapAfterBegin, SwapDelete, SwapNone:
		return true
	}
	return false
}

// OrDefault returns m, or SwapOuter when m is empty.
func (m SwapMode) OrDefault() SwapMode {
	if m == "" {
		return SwapOuter
	}
	return m
}
