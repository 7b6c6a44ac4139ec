package hxssr

import (
	"context"
	"fmt"
	"html"
	"io"
	"sort"
	"sync"

	"github.com/a-h/templ"

	"github.com/pthm/hxssr/lib/negotiate"
)

// Fragment renders a model into a templ component.
type Fragment func(model any) templ.Component

// Typed adapts a function taking a concrete model type. A model of another
// type fails the render with ErrRenderFailed instead of panicking.
//
//	frags.Add("items-list", hxssr.Typed(views.ItemsList))
func Typed[M any](fn func(M) templ.Component) Fragment {
	return func(model any) templ.Component {
		m, ok := model.(M)
		if !ok {
			var want M
			return templ.ComponentFunc(func(context.Context, io.Writer) error {
				return fmt.Errorf("%w: model is %T, want %T", ErrRenderFailed, model, want)
			})
		}
		return fn(m)
	}
}

// Text returns a component writing s, HTML-escaped.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html.EscapeString(s))
		return err
	})
}

// HTML returns a component writing markup as is.
func HTML(markup string) templ.Component {
	return templ.Raw(markup)
}

// Fragments is the set of fragments the engine may render, keyed by id.
//
// Registration happens at startup: Add panics on an empty or duplicate id,
// so mistakes surface before the first request. The flash toast fragment is
// always registered.
type Fragments struct {
	mu        sync.RWMutex
	fragments map[string]Fragment
}

// NewFragments creates a registry holding only the flash fragment.
func NewFragments() *Fragments {
	return &Fragments{
		fragments: map[string]Fragment{
			negotiate.FlashFragmentID: flashFragment,
		},
	}
}

// Add registers fn under id and returns the registry for chaining.
func (f *Fragments) Add(id string, fn Fragment) *Fragments {
	if id == "" {
		panic("hxssr: empty fragment id")
	}
	if fn == nil {
		panic(fmt.Sprintf("hxssr: nil fragment for %q", id))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.fragments[id]; exists {
		panic(fmt.Sprintf("hxssr: fragment %q registered twice", id))
	}
	f.fragments[id] = fn
	return f
}

// Resolve reports whether id is registered.
func (f *Fragments) Resolve(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.fragments[id]
	return ok
}

// IDs returns the registered ids in sorted order.
func (f *Fragments) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.fragments))
	for id := range f.fragments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Component returns the component for id and model.
func (f *Fragments) Component(id string, model any) (templ.Component, error) {
	f.mu.RLock()
	fn, ok := f.fragments[id]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFragmentReference, id)
	}
	c := fn(model)
	if c == nil {
		return nil, fmt.Errorf("%w: fragment %q returned no component", ErrRenderFailed, id)
	}
	return c, nil
}

// Render writes fragment id rendered with model to w. Failures other than
// an unknown id are wrapped in ErrRenderFailed.
func (f *Fragments) Render(ctx context.Context, id string, model any, w io.Writer) error {
	c, err := f.Component(id, model)
	if err != nil {
		return err
	}
	if err := c.Render(ctx, w); err != nil {
		if IsRenderFailed(err) {
			return err
		}
		return fmt.Errorf("%w: fragment %q: %w", ErrRenderFailed, id, err)
	}
	return nil
}
