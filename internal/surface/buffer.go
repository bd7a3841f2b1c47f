// Package surface is an in-memory implementation of the tree surface
// contract. The Bubble Tea host renders from it and tests inspect it.
package surface

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/atomicstack/popup-tree/internal/tree"
)

var (
	ErrClosed        = errors.New("surface closed")
	ErrNotModifiable = errors.New("surface is not modifiable")
)

// Span is a highlight on one line.
type Span struct {
	Start int
	End   int
	Group string
}

// Sign is a marker attached to a line.
type Sign struct {
	ID    int
	Name  string
	Group string
}

type lineAttrs struct {
	spans map[string][]Span
	signs []Sign
}

// Buffer is a line-addressed text surface. Highlights and signs belong to
// lines, so they move with their line when lines above are inserted or
// removed and vanish with it.
type Buffer struct {
	mu         sync.Mutex
	name       string
	viewID     string
	opts       tree.OpenOptions
	lines      []string
	attrs      []lineAttrs
	modifiable bool
	cursor     int
	closed     bool
	redraws    int
	errs       []string
	onChange   func()
	onClose    func()
}

// NewBuffer returns an empty buffer.
func NewBuffer(name, viewID string, opts tree.OpenOptions) *Buffer {
	return &Buffer{name: name, viewID: viewID, opts: opts}
}

func (b *Buffer) ID() string { return b.name }

// ViewID is the view the buffer was opened for.
func (b *Buffer) ViewID() string { return b.viewID }

// Options returns the options the buffer was opened with.
func (b *Buffer) Options() tree.OpenOptions { return b.opts }

// OnChange registers fn to run after every redraw, error or cursor move.
// fn runs without the buffer lock held.
func (b *Buffer) OnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Buffer) changed() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Batch runs fn against the buffer under its lock. The first failing
// primitive aborts the rest of the batch.
func (b *Buffer) Batch(fn func(tree.Batch)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	tx := &batch{b: b}
	fn(tx)
	redraw := tx.redraw
	b.mu.Unlock()
	if redraw {
		b.changed()
	}
	return tx.err
}

// Lines returns a copy of the buffer text.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *Buffer) CursorLine() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// MoveCursor sets the cursor line, clamped to the buffer.
func (b *Buffer) MoveCursor(line int) int {
	b.mu.Lock()
	b.setCursorLocked(line)
	cur := b.cursor
	b.mu.Unlock()
	b.changed()
	return cur
}

func (b *Buffer) setCursorLocked(line int) {
	if line >= len(b.lines) {
		line = len(b.lines) - 1
	}
	if line < 0 {
		line = 0
	}
	b.cursor = line
}

func (b *Buffer) ErrWrite(msg string) {
	b.mu.Lock()
	b.errs = append(b.errs, msg)
	b.mu.Unlock()
	b.changed()
}

// Errors returns every message written to the error channel.
func (b *Buffer) Errors() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.errs...)
}

func (b *Buffer) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	onClose := b.onClose
	b.mu.Unlock()
	if onClose != nil {
		onClose()
	}
	b.changed()
	return nil
}

func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Buffer) Modifiable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modifiable
}

// Redraws counts Redraw requests.
func (b *Buffer) Redraws() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.redraws
}

// Highlights returns the spans of every namespace on line, ordered by
// start column.
func (b *Buffer) Highlights(line int) []Span {
	b.mu.Lock()
	defer b.mu.Unlock()
	if line < 0 || line >= len(b.attrs) {
		return nil
	}
	var out []Span
	for _, spans := range b.attrs[line].spans {
		out = append(out, spans...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// SignLines returns the lines holding a sign of group, in order.
func (b *Buffer) SignLines(group string) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []int
	for i, a := range b.attrs {
		for _, s := range a.signs {
			if s.Group == group {
				out = append(out, i)
			}
		}
	}
	return out
}

// HasSign reports whether line carries a sign of group.
func (b *Buffer) HasSign(line int, group string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if line < 0 || line >= len(b.attrs) {
		return false
	}
	for _, s := range b.attrs[line].signs {
		if s.Group == group {
			return true
		}
	}
	return false
}

func (b *Buffer) String() string {
	return fmt.Sprintf("%s(%d lines)", b.name, len(b.Lines()))
}

type batch struct {
	b      *Buffer
	err    error
	redraw bool
}

func (t *batch) fail(err error) bool {
	if t.err == nil && err != nil {
		t.err = err
	}
	return t.err != nil
}

func (t *batch) SetModifiable(on bool) {
	if t.err != nil {
		return
	}
	t.b.modifiable = on
}

func (t *batch) SetLines(start, end int, lines []string) {
	if t.err != nil {
		return
	}
	b := t.b
	if !b.modifiable {
		t.fail(ErrNotModifiable)
		return
	}
	start, end = clampRange(start, end, len(b.lines))
	text := make([]string, 0, len(b.lines)-(end-start)+len(lines))
	text = append(text, b.lines[:start]...)
	text = append(text, lines...)
	text = append(text, b.lines[end:]...)
	attrs := make([]lineAttrs, 0, len(text))
	attrs = append(attrs, b.attrs[:start]...)
	attrs = append(attrs, make([]lineAttrs, len(lines))...)
	attrs = append(attrs, b.attrs[end:]...)
	b.lines, b.attrs = text, attrs
	if b.cursor >= len(b.lines) {
		b.setCursorLocked(len(b.lines) - 1)
	}
}

func (t *batch) UpdateHighlights(ns string, hls []tree.Highlight, start, end int) {
	if t.err != nil {
		return
	}
	t.ClearNamespace(ns, start, end)
	b := t.b
	for _, h := range hls {
		if h.Line < 0 || h.Line >= len(b.attrs) || h.ColEnd <= h.ColStart {
			continue
		}
		a := &b.attrs[h.Line]
		if a.spans == nil {
			a.spans = map[string][]Span{}
		}
		a.spans[ns] = append(a.spans[ns], Span{Start: h.ColStart, End: h.ColEnd, Group: h.Group})
	}
}

func (t *batch) ClearNamespace(ns string, start, end int) {
	if t.err != nil {
		return
	}
	b := t.b
	start, end = clampRange(start, end, len(b.attrs))
	for i := start; i < end; i++ {
		delete(b.attrs[i].spans, ns)
	}
}

func (t *batch) PlaceSign(id, line int, name, group string) {
	if t.err != nil {
		return
	}
	t.removeSign(group, id)
	b := t.b
	if line < 0 || line >= len(b.attrs) {
		return
	}
	b.attrs[line].signs = append(b.attrs[line].signs, Sign{ID: id, Name: name, Group: group})
}

func (t *batch) UnplaceSign(group string, id int) {
	if t.err != nil {
		return
	}
	t.removeSign(group, id)
}

func (t *batch) removeSign(group string, id int) {
	for i := range t.b.attrs {
		a := &t.b.attrs[i]
		kept := a.signs[:0]
		for _, s := range a.signs {
			if s.Group == group && (id == 0 || s.ID == id) {
				continue
			}
			kept = append(kept, s)
		}
		a.signs = kept
	}
}

func (t *batch) SetCursor(line int) {
	if t.err != nil {
		return
	}
	t.b.setCursorLocked(line)
	t.redraw = true
}

func (t *batch) Redraw() {
	if t.err != nil {
		return
	}
	t.b.redraws++
	t.redraw = true
}

// clampRange resolves end -1 and clamps [start, end) into [0, n].
func clampRange(start, end, n int) (int, int) {
	if end < 0 || end > n {
		end = n
	}
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	return start, end
}
