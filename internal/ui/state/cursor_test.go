package state

import "testing"

func TestHome(t *testing.T) {
	c := Cursor{Line: 2, Total: 3}
	if !c.Home() {
		t.Fatalf("expected move when rows exist")
	}
	if c.Line != 0 {
		t.Fatalf("expected cursor 0, got %d", c.Line)
	}

	empty := Cursor{Line: 5}
	if empty.Home() {
		t.Fatalf("expected no movement without rows")
	}
	if empty.Line != 0 {
		t.Fatalf("expected cursor reset to 0, got %d", empty.Line)
	}
}

func TestEnd(t *testing.T) {
	c := Cursor{Total: 3}
	if !c.End() {
		t.Fatalf("expected movement to end")
	}
	if c.Line != 2 {
		t.Fatalf("expected cursor 2, got %d", c.Line)
	}
	if c.End() {
		t.Fatalf("expected no movement when already at the end")
	}

	empty := Cursor{}
	if empty.End() {
		t.Fatalf("expected no movement without rows")
	}
}

func TestPageMovement(t *testing.T) {
	c := Cursor{Total: 10}
	if !c.PageDown(4) || c.Line != 4 {
		t.Fatalf("expected page down to 4, got %d", c.Line)
	}
	if !c.PageDown(4) || c.Line != 8 {
		t.Fatalf("expected page down to 8, got %d", c.Line)
	}
	if !c.PageDown(4) || c.Line != 9 {
		t.Fatalf("expected clamp to 9, got %d", c.Line)
	}
	if !c.PageUp(0) || c.Line != 0 {
		t.Fatalf("page size 0 should span every row, got %d", c.Line)
	}
}

func TestMoveByClamps(t *testing.T) {
	c := Cursor{Line: 1, Total: 3}
	if !c.MoveBy(-5) || c.Line != 0 {
		t.Fatalf("expected clamp to 0, got %d", c.Line)
	}
	if c.MoveBy(-1) {
		t.Fatalf("expected no movement at the top")
	}
	if !c.MoveBy(7) || c.Line != 2 {
		t.Fatalf("expected clamp to 2, got %d", c.Line)
	}
}

func TestSetTotalClampsCursor(t *testing.T) {
	c := Cursor{Line: 8, Total: 10}
	c.SetTotal(3)
	if c.Line != 2 {
		t.Fatalf("expected cursor 2 after shrinking, got %d", c.Line)
	}
	c.SetTotal(-1)
	if c.Total != 0 || c.Line != 0 {
		t.Fatalf("expected an empty cursor, got %+v", c)
	}
}

func TestEnsureVisible(t *testing.T) {
	c := Cursor{Line: 7, Total: 10}
	c.EnsureVisible(3)
	if c.Offset != 5 {
		t.Fatalf("expected offset 5, got %d", c.Offset)
	}
	c.Line = 2
	c.EnsureVisible(3)
	if c.Offset != 2 {
		t.Fatalf("expected offset 2, got %d", c.Offset)
	}
	c.Offset = 9
	c.Line = 9
	c.EnsureVisible(3)
	if c.Offset != 7 {
		t.Fatalf("expected offset clamped to 7, got %d", c.Offset)
	}
	c.EnsureVisible(0)
	if c.Offset != 0 {
		t.Fatalf("expected offset 0 without a window, got %d", c.Offset)
	}
	empty := Cursor{Line: 3, Offset: 2}
	empty.EnsureVisible(5)
	if empty.Line != 0 || empty.Offset != 0 {
		t.Fatalf("expected reset for empty cursor, got %+v", empty)
	}
}
