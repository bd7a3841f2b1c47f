package ui

import (
	"context"
	"sync"

	"github.com/atomicstack/popup-tree/internal/surface"
	"github.com/atomicstack/popup-tree/internal/tree"
	"github.com/atomicstack/popup-tree/internal/ui/command"
	"github.com/atomicstack/popup-tree/internal/ui/state"
	tea "github.com/charmbracelet/bubbletea"
)

type pickRequest struct {
	title  string
	items  []string
	cursor state.Cursor
	reply  chan int
}

// Bridge carries state from tree engine goroutines to the model. It
// implements tree.TooltipPresenter and tree.Picker.
type Bridge struct {
	mu      sync.Mutex
	buffer  *surface.Buffer
	tooltip []tree.Documentation
	picker  *pickRequest
	info    string
	quit    bool
	hidden  bool

	dirty chan struct{}
}

// NewBridge follows every buffer host opens.
func NewBridge(host *surface.Host) *Bridge {
	b := &Bridge{dirty: make(chan struct{}, 1)}
	if host != nil {
		host.OnOpen(b.attach)
	}
	return b
}

func (b *Bridge) attach(buf *surface.Buffer) {
	b.mu.Lock()
	b.buffer = buf
	b.mu.Unlock()
	buf.OnChange(b.signal)
	b.signal()
}

func (b *Bridge) signal() {
	select {
	case b.dirty <- struct{}{}:
	default:
	}
}

// Buffer returns the surface currently shown.
func (b *Bridge) Buffer() *surface.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer
}

// Show implements tree.TooltipPresenter.
func (b *Bridge) Show(ctx context.Context, docs []tree.Documentation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.tooltip = append([]tree.Documentation(nil), docs...)
	b.mu.Unlock()
	b.signal()
	return nil
}

// Close implements tree.TooltipPresenter.
func (b *Bridge) Close() {
	b.mu.Lock()
	had := b.tooltip != nil
	b.tooltip = nil
	b.mu.Unlock()
	if had {
		b.signal()
	}
}

func (b *Bridge) Tooltip() []tree.Documentation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tooltip
}

// Pick implements tree.Picker. It blocks until the user chooses an entry in
// the model or ctx is done.
func (b *Bridge) Pick(ctx context.Context, title string, items []string) (int, error) {
	req := &pickRequest{
		title:  title,
		items:  append([]string(nil), items...),
		cursor: state.Cursor{Total: len(items)},
		reply:  make(chan int, 1),
	}
	b.mu.Lock()
	b.picker = req
	b.mu.Unlock()
	b.signal()
	select {
	case idx := <-req.reply:
		return idx, nil
	case <-ctx.Done():
		b.mu.Lock()
		if b.picker == req {
			b.picker = nil
		}
		b.mu.Unlock()
		b.signal()
		return -1, ctx.Err()
	}
}

// Picking reports whether a picker is waiting for the user.
func (b *Bridge) Picking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.picker != nil
}

// pickerView returns a copy of the open picker.
func (b *Bridge) pickerView() (pickRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.picker == nil {
		return pickRequest{}, false
	}
	return *b.picker, true
}

func (b *Bridge) movePicker(fn func(c *state.Cursor) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.picker != nil {
		fn(&b.picker.cursor)
	}
}

// answerPicker replies to the open picker. choose false cancels it.
func (b *Bridge) answerPicker(choose bool) {
	b.mu.Lock()
	req := b.picker
	b.picker = nil
	b.mu.Unlock()
	if req == nil {
		return
	}
	idx := -1
	if choose && req.cursor.Total > 0 {
		idx = req.cursor.Line
	}
	req.reply <- idx
}

// Report records a command outcome.
func (b *Bridge) Report(out command.Outcome) {
	b.mu.Lock()
	if out.Info != "" {
		b.info = out.Info
	}
	if out.Quit {
		b.quit = true
	}
	b.mu.Unlock()
	b.signal()
}

// SetHidden records the view being hidden, which ends the popup.
func (b *Bridge) SetHidden(hidden bool) {
	b.mu.Lock()
	b.hidden = hidden
	b.mu.Unlock()
	b.signal()
}

func (b *Bridge) takeInfo() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	info := b.info
	b.info = ""
	return info
}

func (b *Bridge) shouldQuit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quit || b.hidden
}

type redrawMsg struct{}

// waitForRedraw wakes the model after the next bridge signal.
func waitForRedraw(ctx context.Context, b *Bridge) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-b.dirty:
			return redrawMsg{}
		}
	}
}
