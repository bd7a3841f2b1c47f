package ui

import (
	"context"
	"reflect"
	"time"

	"github.com/atomicstack/popup-tree/internal/logging/events"
	"github.com/atomicstack/popup-tree/internal/theme"
	"github.com/atomicstack/popup-tree/internal/ui/command"
	"github.com/atomicstack/popup-tree/internal/ui/state"
	tea "github.com/charmbracelet/bubbletea"
)

const defaultHoldDelay = 500 * time.Millisecond

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// Tree is the part of a tree view the model drives.
type Tree interface {
	Show(ctx context.Context) error
	Key(ctx context.Context, key string) error
	Click(ctx context.Context, line, col int) error
	CursorHold(ctx context.Context) error
	CursorMoved()
	Enter()
	Leave()
	Filtering() bool
}

// Options configures a Model.
type Options struct {
	Context context.Context
	Width   int
	Height  int
	// HoldDelay is the idle time after a cursor move before the tooltip is
	// requested. Negative disables hover.
	HoldDelay time.Duration
	// Footer is the hint shown when there is no message to report.
	Footer string
}

// Model implements the Bubble Tea model for the tree popup.
type Model struct {
	ctx    context.Context
	tree   Tree
	bridge *Bridge
	bus    *command.Bus

	width       int
	height      int
	fixedWidth  bool
	fixedHeight bool
	holdDelay   time.Duration
	holdSeq     int
	footer      string

	cursor  state.Cursor
	errMsg  string
	infoMsg string
	errSeen int

	queue   []command.Request
	running bool
	nextOp  int

	// watchRedraw listens for engine-side buffer changes. The harness turns
	// it off and drives the model synchronously.
	watchRedraw bool

	handlers map[reflect.Type]msgHandler
}

// NewModel wraps a tree view whose host and presenters are bridge.
func NewModel(tree Tree, bridge *Bridge, opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := &Model{
		ctx:       ctx,
		tree:      tree,
		bridge:    bridge,
		bus:       command.New(ctx),
		holdDelay: opts.HoldDelay,
		footer:    opts.Footer,

		watchRedraw: true,
	}
	if m.holdDelay == 0 {
		m.holdDelay = defaultHoldDelay
	}
	if opts.Width > 0 {
		m.width = opts.Width
		m.fixedWidth = true
	}
	if opts.Height > 0 {
		m.height = opts.Height
		m.fixedHeight = true
	}
	m.registerHandlers()
	return m
}

// Init is part of the tea.Model interface. It shows the tree and starts
// listening for redraw signals.
func (m *Model) Init() tea.Cmd {
	show := m.enqueue("show", "Show tree", m.tree.Show)
	if !m.watchRedraw {
		return show
	}
	return tea.Batch(show, waitForRedraw(m.ctx, m.bridge))
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 0, 2)
	if handler := m.handlerFor(msg); handler != nil {
		if cmd := handler(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, m.finishUpdate(cmds)
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKeyMsg,
		reflect.TypeOf(tea.MouseMsg{}):      m.handleMouseMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleWindowSizeMsg,
		reflect.TypeOf(tea.FocusMsg{}):      m.handleFocusMsg,
		reflect.TypeOf(tea.BlurMsg{}):       m.handleBlurMsg,
		reflect.TypeOf(command.Done{}):      m.handleDoneMsg,
		reflect.TypeOf(holdTickMsg{}):       m.handleHoldTickMsg,
		reflect.TypeOf(redrawMsg{}):         m.handleRedrawMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

// finishUpdate ends the program once a command asked to quit or the view
// was hidden.
func (m *Model) finishUpdate(cmds []tea.Cmd) tea.Cmd {
	if info := m.bridge.takeInfo(); info != "" {
		m.infoMsg = info
	}
	if m.bridge.shouldQuit() {
		return tea.Quit
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleRedrawMsg(msg tea.Msg) tea.Cmd {
	refresh := m.refresh()
	if !m.watchRedraw {
		return refresh
	}
	return tea.Batch(refresh, waitForRedraw(m.ctx, m.bridge))
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	resize, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	if !m.fixedWidth {
		m.width = resize.Width
	}
	if !m.fixedHeight {
		m.height = resize.Height
	}
	events.UI.Resize(m.width, m.height)
	m.syncCursor()
	return nil
}

func (m *Model) handleFocusMsg(msg tea.Msg) tea.Cmd {
	m.tree.Enter()
	return nil
}

func (m *Model) handleBlurMsg(msg tea.Msg) tea.Cmd {
	m.tree.Leave()
	return nil
}
