package command

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atomicstack/popup-tree/internal/logging/events"
	"github.com/atomicstack/popup-tree/internal/tree"
)

// Outcome is what a handler wants the host to do after it ran.
type Outcome struct {
	Info string
	Quit bool
}

// Handler runs one command id.
type Handler func(ctx context.Context, args []string) (Outcome, error)

// Registry maps command ids to handlers and executes tree item commands.
type Registry struct {
	mu       sync.Mutex
	handlers map[string]Handler
	onResult func(Outcome)
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register binds id to h, replacing any previous handler.
func (r *Registry) Register(id string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

// OnResult registers fn to receive the outcome of every successful command.
func (r *Registry) OnResult(fn func(Outcome)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult = fn
}

// IDs lists the registered command ids.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Execute implements tree.CommandExecutor.
func (r *Registry) Execute(ctx context.Context, cmd tree.Command) error {
	r.mu.Lock()
	h, ok := r.handlers[cmd.ID]
	onResult := r.onResult
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown command %q", cmd.ID)
	}
	out, err := h(ctx, cmd.Arguments)
	if err != nil {
		events.Action.Error(err)
		return fmt.Errorf("%s: %w", cmd.ID, err)
	}
	events.Action.Success(out.Info)
	if onResult != nil {
		onResult(out)
	}
	return nil
}
