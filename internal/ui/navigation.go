package ui

import (
	"context"

	"github.com/atomicstack/popup-tree/internal/logging/events"
	"github.com/atomicstack/popup-tree/internal/ui/state"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	key := km.String()
	if key == "ctrl+c" {
		return tea.Quit
	}
	if m.bridge.Picking() {
		return m.handlePickerKey(key)
	}
	filtering := m.tree.Filtering()
	events.UI.Key(key, filtering)
	m.clearStatus()
	if !filtering {
		switch key {
		case "q", "esc":
			return tea.Quit
		case "up", "k":
			return m.moveCursor(func(c *state.Cursor) bool { return c.MoveBy(-1) })
		case "down", "j":
			return m.moveCursor(func(c *state.Cursor) bool { return c.MoveBy(1) })
		case "pgup":
			return m.moveCursor(func(c *state.Cursor) bool { return c.PageUp(m.bodyRows()) })
		case "pgdown":
			return m.moveCursor(func(c *state.Cursor) bool { return c.PageDown(m.bodyRows()) })
		case "home", "g":
			return m.moveCursor(func(c *state.Cursor) bool { return c.Home() })
		case "end", "G":
			return m.moveCursor(func(c *state.Cursor) bool { return c.End() })
		}
	}
	keys := treeKeys(km)
	cmds := make([]tea.Cmd, 0, len(keys))
	for _, k := range keys {
		k := k
		if cmd := m.enqueue("key", k, func(ctx context.Context) error {
			return m.tree.Key(ctx, k)
		}); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// treeKeys translates a key message into the names the tree expects. A
// pasted run of characters becomes one key per rune.
func treeKeys(msg tea.KeyMsg) []string {
	switch {
	case msg.Type == tea.KeySpace:
		return []string{"space"}
	case msg.Type == tea.KeyRunes && !msg.Alt && len(msg.Runes) > 1:
		keys := make([]string, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			if r == ' ' {
				keys = append(keys, "space")
				continue
			}
			keys = append(keys, string(r))
		}
		return keys
	}
	return []string{msg.String()}
}

func (m *Model) handlePickerKey(key string) tea.Cmd {
	switch key {
	case "up", "k", "ctrl+p":
		m.bridge.movePicker(func(c *state.Cursor) bool { return c.MoveBy(-1) })
	case "down", "j", "ctrl+n":
		m.bridge.movePicker(func(c *state.Cursor) bool { return c.MoveBy(1) })
	case "home", "g":
		m.bridge.movePicker(func(c *state.Cursor) bool { return c.Home() })
	case "end", "G":
		m.bridge.movePicker(func(c *state.Cursor) bool { return c.End() })
	case "enter":
		m.bridge.answerPicker(true)
	case "esc", "q":
		m.bridge.answerPicker(false)
	}
	return nil
}

// moveCursor applies fn to the surface cursor.
func (m *Model) moveCursor(fn func(c *state.Cursor) bool) tea.Cmd {
	buf := m.bridge.Buffer()
	if buf == nil {
		return nil
	}
	m.syncCursor()
	if !fn(&m.cursor) {
		return nil
	}
	m.cursor.Line = buf.MoveCursor(m.cursor.Line)
	m.cursor.EnsureVisible(m.bodyRows())
	return m.cursorChanged()
}

// refresh re-reads the surface and reacts to cursor moves made by the tree.
func (m *Model) refresh() tea.Cmd {
	if m.syncCursor() {
		return m.cursorChanged()
	}
	return nil
}

// syncCursor copies the surface cursor into the model and reports whether
// it moved.
func (m *Model) syncCursor() bool {
	buf := m.bridge.Buffer()
	if buf == nil {
		return false
	}
	old := m.cursor.Line
	m.cursor.SetTotal(len(buf.Lines()))
	m.cursor.Line = buf.CursorLine()
	m.cursor.EnsureVisible(m.bodyRows())
	return m.cursor.Line != old
}

func (m *Model) cursorChanged() tea.Cmd {
	events.UI.Cursor(m.cursor.Line)
	m.bridge.Close()
	m.tree.CursorMoved()
	return m.scheduleHold()
}

// bodyRows is the number of surface lines that fit above the status line,
// or zero when the height is unbounded.
func (m *Model) bodyRows() int {
	if m.height <= 0 {
		return 0
	}
	rows := m.height - 1
	if rows < 1 {
		rows = 1
	}
	return rows
}
