package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/atomicstack/popup-tree/internal/logging"
	"github.com/atomicstack/popup-tree/internal/tree"
	"github.com/atomicstack/popup-tree/internal/ui/command"
	tea "github.com/charmbracelet/bubbletea"
)

// enqueue schedules a tree operation. Operations run one at a time in
// arrival order.
func (m *Model) enqueue(id, label string, run func(ctx context.Context) error) tea.Cmd {
	m.nextOp++
	req := command.Request{ID: fmt.Sprintf("%s#%d", id, m.nextOp), Label: label, Run: run}
	if m.running {
		m.queue = append(m.queue, req)
		return nil
	}
	m.running = true
	return m.bus.Execute(req)
}

func (m *Model) handleDoneMsg(msg tea.Msg) tea.Cmd {
	done, ok := msg.(command.Done)
	if !ok {
		return nil
	}
	if done.Err != nil && !quietError(done.Err) {
		logging.Error(done.Err)
		m.errMsg = done.Err.Error()
	}
	refresh := m.refresh()
	if len(m.queue) == 0 {
		m.running = false
		return refresh
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	return tea.Batch(refresh, m.bus.Execute(next))
}

func quietError(err error) bool {
	return errors.Is(err, tree.ErrResolutionCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, tree.ErrDisposed)
}
