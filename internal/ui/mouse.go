package ui

import (
	"context"

	"github.com/atomicstack/popup-tree/internal/logging/events"
	"github.com/atomicstack/popup-tree/internal/ui/state"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

// signWidth is the number of cells the sign column takes before each line.
const signWidth = 2

func (m *Model) handleMouseMsg(msg tea.Msg) tea.Cmd {
	mouse, ok := msg.(tea.MouseMsg)
	if !ok || m.bridge.Picking() {
		return nil
	}
	switch mouse.Button {
	case tea.MouseButtonWheelUp:
		return m.moveCursor(func(c *state.Cursor) bool { return c.MoveBy(-1) })
	case tea.MouseButtonWheelDown:
		return m.moveCursor(func(c *state.Cursor) bool { return c.MoveBy(1) })
	}
	if mouse.Action != tea.MouseActionRelease || mouse.Button != tea.MouseButtonLeft {
		return nil
	}
	buf := m.bridge.Buffer()
	if buf == nil {
		return nil
	}
	lines := buf.Lines()
	line := mouse.Y + m.cursor.Offset
	if mouse.Y < 0 || line >= len(lines) {
		return nil
	}
	col := byteColumn(lines[line], mouse.X-signWidth)
	events.UI.Click(line, col)
	m.clearStatus()
	m.cursor.Line = buf.MoveCursor(line)
	moved := m.cursorChanged()
	click := m.enqueue("click", "Click", func(ctx context.Context) error {
		return m.tree.Click(ctx, line, col)
	})
	return tea.Batch(moved, click)
}

// byteColumn converts a display cell within text to a byte offset. Cells
// left of the text map to -1 and cells past its end to len(text).
func byteColumn(text string, cell int) int {
	if cell < 0 {
		return -1
	}
	width := 0
	for i, r := range text {
		w := runewidth.RuneWidth(r)
		if cell < width+w {
			return i
		}
		width += w
	}
	return len(text)
}
