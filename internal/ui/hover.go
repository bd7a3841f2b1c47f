package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type holdTickMsg struct {
	seq int
}

// scheduleHold arms the hover timer. Each cursor move supersedes the
// previous timer.
func (m *Model) scheduleHold() tea.Cmd {
	m.holdSeq++
	if m.holdDelay < 0 {
		return nil
	}
	seq := m.holdSeq
	return tea.Tick(m.holdDelay, func(time.Time) tea.Msg {
		return holdTickMsg{seq: seq}
	})
}

func (m *Model) handleHoldTickMsg(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(holdTickMsg)
	if !ok || tick.seq != m.holdSeq || m.bridge.Picking() {
		return nil
	}
	return m.enqueue("hold", "Cursor hold", m.tree.CursorHold)
}
