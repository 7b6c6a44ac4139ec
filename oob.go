package hxssr

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"github.com/pthm/hxssr/lib/negotiate"
)

var errNoRootElement = errors.New("outerHTML out-of-band fragment has no root element")

// renderOOB writes one out-of-band fragment.
//
// htmx swaps an outerHTML out-of-band element in place of its target, so
// the fragment's root element carries hx-swap-oob itself. Every other
// strategy swaps the element's content, and the fragment is wrapped in a
// div carrying hx-swap-oob="swap:selector".
func (e *Engine) renderOOB(ctx context.Context, buf *bytes.Buffer, o negotiate.OutOfBand) error {
	swap := o.Swap.OrDefault()
	attr := html.EscapeString(string(swap) + ":" + o.Selector)

	if swap != negotiate.SwapOuter {
		buf.WriteString(`<div hx-swap-oob="`)
		buf.WriteString(attr)
		buf.WriteString(`">`)
		if err := e.fragments.Render(ctx, o.FragmentID, o.Model, buf); err != nil {
			return fmt.Errorf("out-of-band %s: %w", o.Selector, err)
		}
		buf.WriteString(`</div>`)
		return nil
	}

	var frag bytes.Buffer
	if err := e.fragments.Render(ctx, o.FragmentID, o.Model, &frag); err != nil {
		return fmt.Errorf("out-of-band %s: %w", o.Selector, err)
	}
	marked, err := markRoot(frag.Bytes(), attr)
	if err != nil {
		return fmt.Errorf("%w: out-of-band %s: fragment %q: %w", ErrRenderFailed, o.Selector, o.FragmentID, err)
	}
	buf.Write(marked)
	return nil
}

// markRoot adds hx-swap-oob="attr" to the first element of frag. attr must
// already be escaped. Leading whitespace, comments and doctypes are
// skipped; leading text is an error.
func markRoot(frag []byte, attr string) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(frag))
	offset := 0
	for {
		tt := z.Next()
		n := len(z.Raw())
		switch tt {
		case html.ErrorToken:
			return nil, errNoRootElement
		case html.TextToken:
			if len(bytes.TrimSpace(frag[offset:offset+n])) != 0 {
				return nil, errNoRootElement
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			at := offset + 1 + len(name)
			out := make([]byte, 0, len(frag)+len(attr)+16)
			out = append(out, frag[:at]...)
			out = append(out, ` hx-swap-oob="`...)
			out = append(out, attr...)
			out = append(out, '"')
			out = append(out, frag[at:]...)
			return out, nil
		case html.EndTagToken:
			return nil, errNoRootElement
		}
		offset += n
	}
}
