package tree

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/atomicstack/popup-tree/internal/logging/events"
)

// Key handles a key press on the surface. While filtering, keys edit the
// prompt or move through the results.
func (v *View[T]) Key(ctx context.Context, key string) error {
	if !v.active() {
		return nil
	}
	if v.filter.isActive() {
		return v.filter.input(ctx, key)
	}
	v.mu.Lock()
	keys := v.cfg.Keys
	node, ok := v.cursorNodeLocked()
	v.mu.Unlock()
	if ok && !v.cache.has(node) {
		return nil
	}
	switch key {
	case keys.ActivateFilter:
		return v.ActivateFilter(ctx)
	case keys.CollapseAll:
		return v.CollapseAll(ctx)
	case keys.Close:
		v.Hide()
		return nil
	}
	if !ok {
		return nil
	}
	switch key {
	case keys.ToggleSelection:
		v.ToggleSelection(node)
	case keys.Invoke:
		return v.invoke(ctx, node)
	case keys.Actions:
		return v.invokeActions(ctx, node)
	case keys.Toggle:
		return v.ToggleExpand(ctx, node)
	}
	return nil
}

// Click handles a pointer release at a surface line and byte column.
// Clicking the expand glyph toggles the node; anything else invokes it.
func (v *View[T]) Click(ctx context.Context, line, col int) error {
	if !v.active() {
		return nil
	}
	v.mu.Lock()
	node, ok := v.nodeAtLocked(line)
	cfg := v.cfg
	var text string
	if ok {
		text = v.lines[line-v.startLocked()].Text
	}
	v.mu.Unlock()
	if !ok || !v.cache.has(node) {
		return nil
	}
	if v.filter.isActive() {
		if err := v.invoke(ctx, node); err != nil {
			v.report(err)
		}
		return v.filter.deactivate(ctx, node, true)
	}
	if col < 0 || col >= len(text) {
		return nil
	}
	if strings.TrimSpace(text[:col]) == "" {
		rest := text[col:]
		for _, icon := range []string{cfg.OpenedIcon, cfg.ClosedIcon} {
			if icon != "" && strings.HasPrefix(rest, icon) {
				return v.ToggleExpand(ctx, node)
			}
		}
	}
	return v.invoke(ctx, node)
}

// ToggleExpand expands a collapsed node or collapses an expanded one,
// re-rendering only its subtree. For a leaf, or a node that is not
// displayed, the parent is toggled and focused instead.
func (v *View[T]) ToggleExpand(ctx context.Context, node T) error {
	item, _, cached := v.cache.get(node)
	if !cached {
		return nil
	}
	v.mu.Lock()
	_, shown := v.indexLocked(node)
	v.mu.Unlock()
	if !shown || item.CollapsibleState == None {
		pp, ok := v.provider.(ParentProvider[T])
		if !ok {
			return nil
		}
		parent, found, err := pp.Parent(ctx, node)
		if err != nil {
			return &ProviderError{Op: "parent", Err: err}
		}
		if !found {
			return nil
		}
		if err := v.ToggleExpand(ctx, parent); err != nil {
			return err
		}
		v.Focus(parent)
		return nil
	}

	release, err := v.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	v.mu.Lock()
	idx, ok := v.indexLocked(node)
	if !ok || v.surface == nil || v.filtering {
		v.mu.Unlock()
		return nil
	}
	item, _, _ = v.cache.get(node)
	level := v.lines[idx].Level
	removed := 1
	var next CollapsibleState
	switch item.CollapsibleState {
	case Expanded:
		removed += v.descendantsLocked(idx)
		next = Collapsed
	case Collapsed:
		next = Expanded
	default:
		v.mu.Unlock()
		return nil
	}
	v.cache.setState(node, next)
	line := v.startLocked() + idx
	opts := v.cfg.renderOptions()
	v.mu.Unlock()

	out := &flatResult[T]{}
	if _, err := v.flat.flatten(ctx, node, level, line, opts, out); err != nil {
		v.cache.setState(node, item.CollapsibleState)
		v.report(fmt.Errorf("toggle %s: %w", v.id, err))
		return err
	}

	v.mu.Lock()
	idx, ok = v.spliceTargetLocked(node, level, removed)
	if !ok {
		redraw := v.state == stateShown && v.surface != nil && !v.filtering
		v.mu.Unlock()
		if redraw {
			return v.renderHeld(ctx)
		}
		return nil
	}
	defer v.unlock()
	v.spliceLocked(idx, removed, line, out)
	ev := ExpandEvent[T]{Node: node}
	if next == Expanded {
		events.Tree.Expand(v.id, line, len(out.lines))
		v.queue(func() { v.expandEvents.emit(ev) })
	} else {
		events.Tree.Collapse(v.id, line, removed)
		v.queue(func() { v.collapseEvents.emit(ev) })
	}
	return nil
}

// CollapseAll collapses every cached node and re-renders the tree.
func (v *View[T]) CollapseAll(ctx context.Context) error {
	v.cache.collapseAll()
	return v.render(ctx)
}

// invoke selects node and runs its command, resolving the item first when
// the command is not known yet.
func (v *View[T]) invoke(ctx context.Context, node T) error {
	item, resolved, ok := v.cache.get(node)
	if !ok {
		return nil
	}
	v.Select(node, false)
	if !resolved && item.Command == nil {
		var err error
		item, err = v.resolveItem(ctx, node, item)
		if errors.Is(err, ErrResolutionCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	if item.Command == nil {
		return fmt.Errorf("invoke %q: %w: no command resolved from tree item", item.Label.Text, ErrInvariant)
	}
	if v.opts.Commands == nil {
		return fmt.Errorf("invoke %q: %w: command executor", item.Label.Text, ErrMissingCapability)
	}
	return v.opts.Commands.Execute(ctx, *item.Command)
}

// invokeActions lets the user pick one of the configured actions for node.
func (v *View[T]) invokeActions(ctx context.Context, node T) error {
	v.Select(node, false)
	if len(v.opts.Actions) == 0 {
		v.warn("No actions available")
		return nil
	}
	if v.opts.Picker == nil {
		return fmt.Errorf("actions: %w: picker", ErrMissingCapability)
	}
	names := make([]string, 0, len(v.opts.Actions))
	for name := range v.opts.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	idx, err := v.opts.Picker.Pick(ctx, "Choose action", names)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(names) {
		return nil
	}
	var selection []T
	if sel := v.Selection(); len(sel) > 1 {
		selection = sel
	}
	events.Action.Run(v.id, names[idx])
	return v.opts.Actions[names[idx]](ctx, node, selection)
}
