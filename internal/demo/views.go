package demo

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/pthm/hxssr"
)

// Fragment ids served by the demo.
const (
	FragmentPage  = "items-page"
	FragmentList  = "items-list"
	FragmentRow   = "item-row"
	FragmentCount = "item-count"
	FragmentEmpty = "empty"
)

// PageModel is what the full items page renders.
type PageModel struct {
	Items []Item
	Stats Stats
}

// Fragments registers every demo view.
func Fragments() *hxssr.Fragments {
	return hxssr.NewFragments().
		Add(FragmentPage, hxssr.Typed(itemsPage)).
		Add(FragmentList, hxssr.Typed(itemsList)).
		Add(FragmentRow, hxssr.Typed(itemRow)).
		Add(FragmentCount, hxssr.Typed(itemCount)).
		Add(FragmentEmpty, func(any) templ.Component { return templ.NopComponent })
}

func itemsPage(m PageModel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		io.WriteString(w, `<main><h1>Items</h1><p id="item-count">`)
		if err := itemCount(m.Stats).Render(ctx, w); err != nil {
			return err
		}
		io.WriteString(w, `</p>`+
			`<form hx-post="/items" hx-target="#items-list" hx-swap="outerHTML" hx-on::after-request="this.reset()">`+
			`<input name="title" placeholder="New item" required><button type="submit">Add</button></form>`)
		if err := itemsList(m.Items).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<button hx-get="/toast" hx-swap="none">Notify</button></main>`)
		return err
	})
}

func itemsList(items []Item) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		io.WriteString(w, `<ul id="items-list">`)
		for _, it := range items {
			if err := itemRow(it).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func itemRow(it Item) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		id := html.EscapeString(it.ID)
		class := ""
		if it.Done {
			class = ` class="done"`
		}
		_, err := fmt.Fprintf(w,
			`<li id="%s"%s><span>%s</span>`+
				`<button hx-post="/items/%s/toggle" hx-target="closest li" hx-swap="outerHTML">Toggle</button>`+
				`<button hx-delete="/items/%s" hx-target="closest li" hx-swap="outerHTML">Delete</button></li>`,
			id, class, html.EscapeString(it.Title), id, id)
		return err
	})
}

func itemCount(st Stats) templ.Component {
	return hxssr.Text(fmt.Sprintf("%d of %d done", st.Done, st.Total))
}
