// Package demo is a small items application served by the hxssr command.
package demo

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pthm/hxssr"
)

// Routes mounts the demo handlers on r.
func Routes(r chi.Router, eng *hxssr.Engine, store *Store) {
	h := &handlers{store: store}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/items", http.StatusSeeOther)
	})
	r.Method(http.MethodGet, "/items", eng.Handle(h.page))
	r.Method(http.MethodPost, "/items", eng.Handle(h.add))
	r.Method(http.MethodPost, "/items/{id}/toggle", eng.Handle(h.toggle))
	r.Method(http.MethodDelete, "/items/{id}", eng.Handle(h.remove))
	r.Method(http.MethodGet, "/toast", eng.Handle(h.toast))
}

type handlers struct {
	store *Store
}

func (h *handlers) page(r *http.Request) (hxssr.RenderRequest, error) {
	return hxssr.Render(FragmentPage, PageModel{Items: h.store.List(), Stats: h.store.Stats()}).
		Title("Items"), nil
}

func (h *handlers) add(r *http.Request) (hxssr.RenderRequest, error) {
	it, err := h.store.Add(r.FormValue("title"))
	if err != nil {
		return hxssr.Render(FragmentList, h.store.List()).
			Flash(hxssr.FlashError, "Title is required").
			Reswap("none"), nil
	}
	return hxssr.Render(FragmentList, h.store.List()).
		OOB("#item-count", hxssr.SwapInner, FragmentCount, h.store.Stats()).
		Flash(hxssr.FlashSuccess, fmt.Sprintf("Added %q", it.Title)).
		Trigger("items:changed", map[string]string{"id": it.ID}), nil
}

func (h *handlers) toggle(r *http.Request) (hxssr.RenderRequest, error) {
	it, ok := h.store.Toggle(chi.URLParam(r, "id"))
	if !ok {
		return hxssr.RenderRequest{}, fmt.Errorf("toggle %s: %w", chi.URLParam(r, "id"), hxssr.ErrNotFound)
	}
	return hxssr.Render(FragmentRow, it).
		OOB("#item-count", hxssr.SwapInner, FragmentCount, h.store.Stats()).
		Trigger("items:changed"), nil
}

func (h *handlers) remove(r *http.Request) (hxssr.RenderRequest, error) {
	id := chi.URLParam(r, "id")
	if !h.store.Delete(id) {
		return hxssr.RenderRequest{}, fmt.Errorf("delete %s: %w", id, hxssr.ErrNotFound)
	}
	if !hxssr.IsHTMX(r) {
		return hxssr.Render(FragmentEmpty, nil).Redirect("/items"), nil
	}
	return hxssr.Render(FragmentEmpty, nil).
		OOB("#item-count", hxssr.SwapInner, FragmentCount, h.store.Stats()).
		Flash(hxssr.FlashInfo, "Deleted").
		Trigger("items:changed"), nil
}

func (h *handlers) toast(r *http.Request) (hxssr.RenderRequest, error) {
	return hxssr.Render(FragmentEmpty, nil).Flash(hxssr.FlashInfo, "Hello from the server"), nil
}
