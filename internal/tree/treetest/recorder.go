package treetest

import (
	"context"
	"sync"
	"time"

	"github.com/atomicstack/popup-tree/internal/tree"
)

// Commands records executed commands.
type Commands struct {
	mu   sync.Mutex
	Err  error
	runs []tree.Command
}

func (c *Commands) Execute(ctx context.Context, cmd tree.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, cmd)
	return c.Err
}

// Runs returns the executed commands in order.
func (c *Commands) Runs() []tree.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tree.Command(nil), c.runs...)
}

// Tooltips records shown documentation.
type Tooltips struct {
	mu     sync.Mutex
	shown  [][]tree.Documentation
	closed int
}

func (t *Tooltips) Show(ctx context.Context, docs []tree.Documentation) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shown = append(t.shown, docs)
	return nil
}

func (t *Tooltips) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
}

// Shown returns every Show call's documentation.
func (t *Tooltips) Shown() [][]tree.Documentation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]tree.Documentation(nil), t.shown...)
}

// Scheduler captures retry callbacks instead of running them on a timer.
type Scheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (s *Scheduler) AfterFunc(_ time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, fn)
	idx := len(s.pending) - 1
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pending[idx] == nil {
			return false
		}
		s.pending[idx] = nil
		return true
	}
}

// Pending returns the number of scheduled callbacks not yet run or stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, fn := range s.pending {
		if fn != nil {
			n++
		}
	}
	return n
}

// RunNext runs the oldest pending callback and reports whether one ran.
func (s *Scheduler) RunNext() bool {
	s.mu.Lock()
	var fn func()
	for i, f := range s.pending {
		if f != nil {
			fn = f
			s.pending[i] = nil
			break
		}
	}
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}
