package surface

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/atomicstack/popup-tree/internal/tree"
)

func write(t *testing.T, b *Buffer, start, end int, lines ...string) {
	t.Helper()
	err := b.Batch(func(tx tree.Batch) {
		tx.SetModifiable(true)
		tx.SetLines(start, end, lines)
		tx.SetModifiable(false)
	})
	if err != nil {
		t.Fatalf("set lines: %v", err)
	}
}

func TestSetLinesRequiresModifiable(t *testing.T) {
	b := NewBuffer("b", "v", tree.OpenOptions{})
	err := b.Batch(func(tx tree.Batch) {
		tx.SetLines(0, -1, []string{"x"})
		tx.Redraw()
	})
	if !errors.Is(err, ErrNotModifiable) {
		t.Fatalf("expected not modifiable, got %v", err)
	}
	if len(b.Lines()) != 0 || b.Redraws() != 0 {
		t.Fatalf("failed batch must stop at the first error")
	}
}

func TestAttributesMoveWithLines(t *testing.T) {
	b := NewBuffer("b", "v", tree.OpenOptions{})
	write(t, b, 0, -1, "a", "b", "c")
	err := b.Batch(func(tx tree.Batch) {
		tx.UpdateHighlights("ns", []tree.Highlight{{Line: 2, ColStart: 0, ColEnd: 1, Group: "G"}}, 0, -1)
		tx.PlaceSign(7, 2, "Sel", "grp")
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	write(t, b, 0, 1, "x", "y")
	if got := b.Lines(); !reflect.DeepEqual(got, []string{"x", "y", "b", "c"}) {
		t.Fatalf("lines = %q", got)
	}
	if got := b.SignLines("grp"); !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("sign lines = %v, want [3]", got)
	}
	if got := b.Highlights(3); !reflect.DeepEqual(got, []Span{{Start: 0, End: 1, Group: "G"}}) {
		t.Fatalf("highlights = %+v", got)
	}

	write(t, b, 3, 4)
	if len(b.SignLines("grp")) != 0 || b.HasSign(3, "grp") {
		t.Fatalf("removed line must take its sign along")
	}
}

func TestSignsReplaceByIDAndGroup(t *testing.T) {
	b := NewBuffer("b", "v", tree.OpenOptions{SignColumn: true})
	write(t, b, 0, -1, "a", "b", "c")
	b.Batch(func(tx tree.Batch) {
		tx.PlaceSign(1, 0, "Sel", "grp")
		tx.PlaceSign(2, 1, "Sel", "grp")
		tx.PlaceSign(1, 2, "Sel", "grp")
		tx.PlaceSign(9, 0, "Other", "other")
	})
	if got := b.SignLines("grp"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("sign lines = %v, want [1 2]", got)
	}
	b.Batch(func(tx tree.Batch) { tx.UnplaceSign("grp", 0) })
	if len(b.SignLines("grp")) != 0 {
		t.Fatalf("id 0 must clear the group")
	}
	if !b.HasSign(0, "other") {
		t.Fatalf("other groups must survive")
	}
}

func TestClearNamespaceKeepsOthers(t *testing.T) {
	b := NewBuffer("b", "v", tree.OpenOptions{})
	write(t, b, 0, -1, "abc")
	b.Batch(func(tx tree.Batch) {
		tx.UpdateHighlights("one", []tree.Highlight{{Line: 0, ColStart: 1, ColEnd: 2, Group: "A"}}, 0, -1)
		tx.UpdateHighlights("two", []tree.Highlight{{Line: 0, ColStart: 0, ColEnd: 1, Group: "B"}}, 0, -1)
	})
	if got := b.Highlights(0); len(got) != 2 || got[0].Group != "B" {
		t.Fatalf("highlights = %+v", got)
	}
	b.Batch(func(tx tree.Batch) { tx.ClearNamespace("one", 0, -1) })
	if got := b.Highlights(0); !reflect.DeepEqual(got, []Span{{Start: 0, End: 1, Group: "B"}}) {
		t.Fatalf("highlights = %+v", got)
	}
}

func TestCursorClampAndChangeNotifications(t *testing.T) {
	b := NewBuffer("b", "v", tree.OpenOptions{})
	changes := 0
	b.OnChange(func() { changes++ })
	write(t, b, 0, -1, "a", "b")
	if changes != 0 {
		t.Fatalf("plain edits must not notify")
	}
	if got := b.MoveCursor(10); got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}
	b.Batch(func(tx tree.Batch) { tx.Redraw() })
	b.ErrWrite("oops")
	if changes != 3 {
		t.Fatalf("expected 3 notifications, got %d", changes)
	}
	write(t, b, 1, 2)
	if b.CursorLine() != 0 {
		t.Fatalf("cursor must follow a shrinking buffer, got %d", b.CursorLine())
	}
	if got := b.Errors(); !reflect.DeepEqual(got, []string{"oops"}) {
		t.Fatalf("errors = %q", got)
	}
}

func TestClosedBufferRejectsBatches(t *testing.T) {
	b := NewBuffer("b", "v", tree.OpenOptions{})
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !b.Closed() {
		t.Fatalf("expected closed")
	}
	if err := b.Batch(func(tree.Batch) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestHostNamesAndReplacesBuffers(t *testing.T) {
	h := NewHost()
	var opened []string
	h.OnOpen(func(b *Buffer) { opened = append(opened, b.ID()) })
	ctx := context.Background()

	first, err := h.Open(ctx, "view", tree.OpenOptions{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	second, err := h.Open(ctx, "view", tree.OpenOptions{FixedWidth: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if first.ID() != "PopupTree1" || second.ID() != "PopupTree2" {
		t.Fatalf("unexpected names %q %q", first.ID(), second.ID())
	}
	if !first.(*Buffer).Closed() {
		t.Fatalf("reopening a view must close its previous buffer")
	}
	if h.Buffer("view") != second {
		t.Fatalf("host must track the newest buffer")
	}
	second.Close()
	if h.Buffer("view") != nil {
		t.Fatalf("closed buffer must be forgotten")
	}
	if !reflect.DeepEqual(opened, []string{"PopupTree1", "PopupTree2"}) {
		t.Fatalf("opened = %v", opened)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := h.Open(cancelled, "view", tree.OpenOptions{}); err == nil {
		t.Fatalf("expected cancelled open to fail")
	}
}
