package tree

import "github.com/atomicstack/popup-tree/internal/logging/events"

// Selection returns a copy of the selected nodes in selection order.
func (v *View[T]) Selection() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]T, len(v.selection))
	copy(out, v.selection)
	return out
}

// Select selects node. In single-select mode, or with forceSingle, every
// other node is unselected first.
func (v *View[T]) Select(node T, forceSingle bool) {
	v.mu.Lock()
	defer v.unlock()
	v.selectLocked(node, forceSingle, false)
}

// Unselect removes node from the selection.
func (v *View[T]) Unselect(node T) {
	v.mu.Lock()
	defer v.unlock()
	v.unselectLocked(node)
}

// ToggleSelection flips node's membership in the selection.
func (v *View[T]) ToggleSelection(node T) {
	v.mu.Lock()
	defer v.unlock()
	v.toggleSelectionLocked(node)
}

// ClearSelection unselects everything.
func (v *View[T]) ClearSelection() {
	v.mu.Lock()
	defer v.unlock()
	v.clearSelectionLocked()
}

func (v *View[T]) selectedIndex(node T) int {
	for i, n := range v.selection {
		if n == node {
			return i
		}
	}
	return -1
}

func (v *View[T]) selectLocked(node T, forceSingle, noRedraw bool) {
	if v.state == stateDisposed {
		return
	}
	single := !v.opts.CanSelectMany || forceSingle
	prev := v.selection
	switch {
	case single:
		v.selection = []T{node}
	case v.selectedIndex(node) < 0:
		v.selection = append(append([]T(nil), prev...), node)
	}
	row, shown := v.lineLocked(node)
	v.batchLocked(func(b Batch) {
		if single {
			b.UnplaceSign(SignGroup, 0)
		}
		if shown {
			b.SetCursor(row)
			b.PlaceSign(signOffset+row, row, SignName, SignGroup)
		}
		if !noRedraw {
			b.Redraw()
		}
	})
	if !sameNodes(prev, v.selection) {
		v.notifySelectionLocked()
	}
}

func (v *View[T]) unselectLocked(node T) {
	idx := v.selectedIndex(node)
	if idx < 0 {
		return
	}
	v.selection = append(append([]T(nil), v.selection[:idx]...), v.selection[idx+1:]...)
	if row, ok := v.lineLocked(node); ok {
		v.batchLocked(func(b Batch) {
			b.UnplaceSign(SignGroup, signOffset+row)
			b.Redraw()
		})
	}
	v.notifySelectionLocked()
}

func (v *View[T]) toggleSelectionLocked(node T) {
	if v.selectedIndex(node) >= 0 {
		v.unselectLocked(node)
		return
	}
	v.selectLocked(node, false, false)
}

func (v *View[T]) clearSelectionLocked() {
	if len(v.selection) == 0 {
		return
	}
	v.selection = nil
	v.batchLocked(func(b Batch) {
		b.UnplaceSign(SignGroup, 0)
		b.Redraw()
	})
	events.Selection.Cleared(v.id)
	v.notifySelectionLocked()
}

// refreshSignsLocked re-places one marker per displayed selected node.
func (v *View[T]) refreshSignsLocked() {
	if v.surface == nil || len(v.selection) == 0 {
		return
	}
	v.batchLocked(func(b Batch) {
		b.UnplaceSign(SignGroup, 0)
		for _, node := range v.selection {
			if row, ok := v.lineLocked(node); ok {
				b.PlaceSign(signOffset+row, row, SignName, SignGroup)
			}
		}
	})
}

func (v *View[T]) notifySelectionLocked() {
	sel := make([]T, len(v.selection))
	copy(sel, v.selection)
	events.Selection.Changed(v.id, len(sel))
	v.queue(func() { v.selectionEvents.emit(SelectionEvent[T]{Selection: sel}) })
}

// selectRelative moves the single selection by delta lines, wrapping at
// either end of the projection.
func (v *View[T]) selectRelative(delta int) {
	v.mu.Lock()
	defer v.unlock()
	if len(v.lines) == 0 {
		return
	}
	idx := -1
	if len(v.selection) > 0 {
		idx, _ = v.indexLocked(v.selection[len(v.selection)-1])
	}
	switch {
	case idx < 0 && delta > 0:
		idx = 0
	case idx < 0:
		idx = len(v.lines) - 1
	default:
		idx = (idx + delta + len(v.lines)) % len(v.lines)
	}
	v.selectLocked(v.lines[idx].Node, true, false)
}

func sameNodes[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
