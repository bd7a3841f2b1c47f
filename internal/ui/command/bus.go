package command

import (
	"context"
	"fmt"

	"github.com/atomicstack/popup-tree/internal/logging/events"
	tea "github.com/charmbracelet/bubbletea"
)

// Request encapsulates one tree operation run on behalf of the UI.
type Request struct {
	ID    string
	Label string
	Run   func(ctx context.Context) error
}

// Done is the message produced when a request finishes.
type Done struct {
	ID  string
	Err error
}

// Bus runs tree operations off the Bubble Tea event loop.
type Bus struct {
	ctx context.Context
}

// New initialises a command bus whose requests run under ctx.
func New(ctx context.Context) *Bus {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Bus{ctx: ctx}
}

// Execute wraps a request into a Bubble Tea command while emitting trace logs.
func (b *Bus) Execute(req Request) tea.Cmd {
	events.Command.Queue(req.ID, req.Label)
	return func() tea.Msg {
		if req.Run == nil {
			events.Command.Skip(req.ID, req.Label)
			return Done{ID: req.ID}
		}
		err := req.Run(b.ctx)
		result := "ok"
		if err != nil {
			result = fmt.Sprintf("error: %v", err)
		}
		events.Command.Result(req.ID, req.Label, result)
		return Done{ID: req.ID, Err: err}
	}
}
