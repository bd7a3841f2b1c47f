package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/atomicstack/popup-tree/internal/logging"
	"github.com/atomicstack/popup-tree/internal/logging/events"
)

// updateRegionLocked replaces surface lines [start, end) with lines and
// applies hls to the affected span in one batch. end -1 means to the end.
func (v *View[T]) updateRegionLocked(lines []string, hls []Highlight, start, end int, noRedraw bool) {
	if v.surface == nil {
		return
	}
	hlEnd := -1
	if end != -1 {
		hlEnd = start + len(lines)
	}
	v.batchLocked(func(b Batch) {
		b.SetModifiable(true)
		b.SetLines(start, end, lines)
		if len(hls) > 0 {
			b.UpdateHighlights(Namespace, hls, start, hlEnd)
		}
		b.SetModifiable(false)
		if !noRedraw {
			b.Redraw()
		}
	})
}

// updateHeadLinesLocked rewrites the message and title lines. When
// initialize is set the whole surface is replaced.
func (v *View[T]) updateHeadLinesLocked(initialize bool) {
	end := v.messageLine + v.titleLine
	if initialize {
		end = -1
	}
	var lines []string
	var hls []Highlight
	if v.message != "" {
		hls = append(hls, Highlight{Line: 0, ColStart: 0, ColEnd: len(v.message), Group: GroupMessage})
		lines = append(lines, v.message, "")
	}
	if v.title != "" {
		line := len(lines)
		text := v.title
		if v.description != "" {
			text += " " + v.description
			hls = append(hls, Highlight{Line: line, ColStart: len(v.title) + 1, ColEnd: len(text), Group: GroupDescription})
		}
		hls = append(hls, Highlight{Line: line, ColStart: 0, ColEnd: len(v.title), Group: GroupTitle})
		lines = append(lines, text)
	}
	v.messageLine = 0
	if v.message != "" {
		v.messageLine = 2
	}
	v.titleLine = 0
	if v.title != "" {
		v.titleLine = 1
	}
	events.Tree.HeadLines(v.id, v.messageLine, v.titleLine)
	v.updateRegionLocked(lines, hls, 0, end, false)
	if !initialize {
		v.refreshSignsLocked()
	}
}

// SetMessage shows msg above the title; an empty msg removes it.
func (v *View[T]) SetMessage(msg string) {
	v.mu.Lock()
	defer v.unlock()
	v.message = singleLine(msg)
	v.updateHeadLinesLocked(false)
}

// SetTitle replaces the title line; an empty title removes it.
func (v *View[T]) SetTitle(title string) {
	v.mu.Lock()
	defer v.unlock()
	v.title = singleLine(title)
	v.updateHeadLinesLocked(false)
}

// SetDescription sets the text shown after the title.
func (v *View[T]) SetDescription(desc string) {
	v.mu.Lock()
	defer v.unlock()
	v.description = singleLine(desc)
	v.updateHeadLinesLocked(false)
}

// Render rebuilds the whole projection.
func (v *View[T]) Render(ctx context.Context) error {
	return v.render(ctx)
}

func (v *View[T]) render(ctx context.Context) error {
	if !v.active() {
		return nil
	}
	release, err := v.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return v.renderHeld(ctx)
}

// renderHeld rebuilds the projection. The caller holds the render lock.
func (v *View[T]) renderHeld(ctx context.Context) error {
	v.mu.Lock()
	if v.surface == nil || v.filtering {
		v.mu.Unlock()
		return nil
	}
	start := v.startLocked()
	opts := v.cfg.renderOptions()
	v.mu.Unlock()

	out, err := v.flat.flattenRoots(ctx, start, opts)

	v.mu.Lock()
	defer v.unlock()
	if v.surface == nil || v.filtering || v.state != stateShown {
		return nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		v.renderFailedLocked(err)
		return err
	}
	if v.failures > 0 {
		v.failures = 0
		v.updateHeadLinesLocked(true)
	}
	out.shift(v.startLocked() - start)
	v.lines = out.lines
	v.updateRegionLocked(out.texts(), out.hls, v.startLocked(), -1, false)
	v.refreshSignsLocked()
	events.Tree.Render(v.id, len(out.lines))
	return nil
}

// renderFailedLocked replaces the body with the error and schedules a retry
// unless the attempt budget is spent.
func (v *View[T]) renderFailedLocked(err error) {
	v.failures++
	attempt := v.failures
	logging.Error(fmt.Errorf("render tree %s (attempt %d): %w", v.id, attempt, err))
	events.Tree.RenderFailed(v.id, err, attempt)
	v.lines = nil
	v.cache.clear()
	v.clearSelectionLocked()
	v.messageLine, v.titleLine = 1, 0
	msg := singleLine(err.Error())
	v.updateRegionLocked([]string{msg}, []Highlight{{Line: 0, ColStart: 0, ColEnd: len(msg), Group: GroupWarning}}, 0, -1, false)
	if v.surface != nil {
		v.surface.ErrWrite(msg)
	}
	if v.stopRetry != nil {
		v.stopRetry()
		v.stopRetry = nil
	}
	if attempt >= maxRenderAttempts {
		return
	}
	v.retrySeq++
	seq := v.retrySeq
	v.stopRetry = v.opts.AfterFunc(v.opts.RetryDelay, func() {
		v.mu.Lock()
		if v.retrySeq != seq {
			v.mu.Unlock()
			return
		}
		v.stopRetry = nil
		v.mu.Unlock()
		events.Tree.Retry(v.id, attempt+1)
		if err := v.render(v.ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error(err)
		}
	})
}

// HandleChange applies a provider change. While filtering the candidate
// snapshot is rebuilt; otherwise a single node is re-rendered in place, or
// the whole tree when the node is not displayed or All is set.
func (v *View[T]) HandleChange(ctx context.Context, change Change[T]) error {
	if !v.active() {
		return nil
	}
	events.Provider.Change(v.id, change.All)
	v.mu.Lock()
	if v.filtering {
		v.candidates, v.haveCands = nil, false
		text := v.filterText
		v.mu.Unlock()
		return v.applyFilter(ctx, text)
	}
	if change.All {
		v.clearSelectionLocked()
		v.unlock()
		return v.render(ctx)
	}
	v.mu.Unlock()

	release, err := v.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	v.mu.Lock()
	if v.filtering {
		v.mu.Unlock()
		return nil
	}
	idx, ok := v.indexLocked(change.Node)
	if !ok || v.surface == nil {
		v.mu.Unlock()
		return v.renderHeld(ctx)
	}
	level := v.lines[idx].Level
	removed := v.descendantsLocked(idx) + 1
	line := v.startLocked() + idx
	opts := v.cfg.renderOptions()
	v.mu.Unlock()

	out := &flatResult[T]{}
	if _, err := v.flat.flatten(ctx, change.Node, level, line, opts, out); err != nil {
		v.report(fmt.Errorf("refresh tree %s: %w", v.id, err))
		return err
	}

	v.mu.Lock()
	idx, ok = v.spliceTargetLocked(change.Node, level, removed)
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
	return nil
}

// spliceTargetLocked finds node again once a provider call has returned.
// It fails when the view stopped showing the tree or the node's block no
// longer has the level and length the new lines were built for.
func (v *View[T]) spliceTargetLocked(node T, level, removed int) (int, bool) {
	if v.state != stateShown || v.surface == nil || v.filtering {
		return -1, false
	}
	idx, ok := v.indexLocked(node)
	if !ok || v.lines[idx].Level != level || v.descendantsLocked(idx)+1 != removed {
		return -1, false
	}
	return idx, true
}

// spliceLocked replaces removed projection lines at idx with out, whose
// highlights were computed for surface line line.
func (v *View[T]) spliceLocked(idx, removed, line int, out *flatResult[T]) {
	start := v.startLocked() + idx
	out.shift(start - line)
	next := make([]RenderedLine[T], 0, len(v.lines)-removed+len(out.lines))
	next = append(next, v.lines[:idx]...)
	next = append(next, out.lines...)
	next = append(next, v.lines[idx+removed:]...)
	v.lines = next
	v.updateRegionLocked(out.texts(), out.hls, start, start+removed, false)
	v.refreshSignsLocked()
	events.Tree.Splice(v.id, start, removed, len(out.lines))
}

// CheckLines reports whether the surface body matches the projection.
func (v *View[T]) CheckLines() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.surface == nil {
		return false
	}
	all := v.surface.Lines()
	start := v.startLocked()
	if start > len(all) {
		return false
	}
	body := all[start:]
	if len(body) != len(v.lines) {
		return false
	}
	for i, l := range v.lines {
		if body[i] != l.Text {
			return false
		}
	}
	return true
}
