package tree

import (
	"context"
	"errors"
)

// beginResolveLocked cancels the outstanding resolution and issues a new
// handle derived from ctx.
func (v *View[T]) beginResolveLocked(ctx context.Context) *resolveHandle {
	v.cancelResolveLocked()
	v.resolveGen++
	rctx, cancel := context.WithCancel(ctx)
	h := &resolveHandle{gen: v.resolveGen, ctx: rctx, cancel: cancel}
	v.resolving = h
	return h
}

func (v *View[T]) endResolve(h *resolveHandle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	h.cancel()
	if v.resolving != nil && v.resolving.gen == h.gen {
		v.resolving = nil
	}
}

func (v *View[T]) cancelResolveLocked() {
	if v.resolving != nil {
		v.resolving.cancel()
		v.resolving = nil
	}
}

// resolveItem enriches item under a fresh handle. A superseded handle
// yields ErrResolutionCancelled and leaves the cache unresolved.
func (v *View[T]) resolveItem(ctx context.Context, node T, item Item) (Item, error) {
	v.mu.Lock()
	h := v.beginResolveLocked(ctx)
	v.mu.Unlock()
	defer v.endResolve(h)
	resolved, err := v.cache.resolveDeep(h.ctx, node, item)
	if h.ctx.Err() != nil || errors.Is(err, ErrResolutionCancelled) {
		return Item{}, ErrResolutionCancelled
	}
	return resolved, err
}

// CursorHold resolves the item under the cursor and shows its tooltip.
// Nothing happens while another resolution is in flight.
func (v *View[T]) CursorHold(ctx context.Context) error {
	v.mu.Lock()
	if v.state != stateShown || v.surface == nil || v.resolving != nil {
		v.mu.Unlock()
		return nil
	}
	node, ok := v.cursorNodeLocked()
	v.mu.Unlock()
	if !ok {
		return nil
	}
	item, resolved, cached := v.cache.get(node)
	if !cached {
		return nil
	}
	if !resolved {
		var err error
		item, err = v.resolveItem(ctx, node, item)
		if errors.Is(err, ErrResolutionCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	if item.Tooltip == nil || v.opts.Tooltips == nil || !v.active() {
		return nil
	}
	doc := Documentation{Filetype: "txt", Content: item.Tooltip.Value}
	if item.Tooltip.Kind == MarkupMarkdown {
		doc.Filetype = "markdown"
	}
	return v.opts.Tooltips.Show(ctx, []Documentation{doc})
}

// CursorMoved cancels an in-flight tooltip resolution.
func (v *View[T]) CursorMoved() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelResolveLocked()
}

// Enter is called when the surface gains focus.
func (v *View[T]) Enter() {
	v.mu.Lock()
	defer v.unlock()
	v.cancelResolveLocked()
	if !v.filtering || v.surface == nil {
		return
	}
	line := v.messageLine + v.titleLine
	n := len(v.filterText)
	v.batchLocked(func(b Batch) {
		b.UpdateHighlights(Namespace, []Highlight{{Line: line, ColStart: n, ColEnd: n + 1, Group: GroupCursor}}, line, line+1)
		b.Redraw()
	})
}

// Leave is called when the surface loses focus.
func (v *View[T]) Leave() {
	v.mu.Lock()
	defer v.unlock()
	v.cancelResolveLocked()
	if !v.filtering || v.surface == nil {
		return
	}
	line := v.messageLine + v.titleLine
	v.batchLocked(func(b Batch) {
		b.ClearNamespace(Namespace, line, line+1)
		b.Redraw()
	})
}
