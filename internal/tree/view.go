package tree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atomicstack/popup-tree/internal/logging"
	"github.com/atomicstack/popup-tree/internal/logging/events"
)

const (
	defaultRetryDelay = 500 * time.Millisecond
	maxRenderAttempts = 5
)

// Keys binds each tree action to a host key name.
type Keys struct {
	Invoke          string
	Toggle          string
	Actions         string
	CollapseAll     string
	ToggleSelection string
	Close           string
	ActivateFilter  string
	SelectNext      string
	SelectPrevious  string
}

// Config is the user-tunable part of a view.
type Config struct {
	OpenedIcon string
	ClosedIcon string
	LeafIndent bool
	FixedWidth bool
	Keys       Keys
}

// DefaultConfig returns the stock glyphs and key bindings.
func DefaultConfig() Config {
	return Config{
		OpenedIcon: "-",
		ClosedIcon: "+",
		LeafIndent: true,
		FixedWidth: true,
		Keys: Keys{
			Invoke:          "enter",
			Toggle:          "t",
			Actions:         "I",
			CollapseAll:     "M",
			ToggleSelection: "space",
			Close:           "ctrl+o",
			ActivateFilter:  "f",
			SelectNext:      "ctrl+j",
			SelectPrevious:  "ctrl+k",
		},
	}
}

func (c Config) renderOptions() renderOptions {
	return renderOptions{openedIcon: c.OpenedIcon, closedIcon: c.ClosedIcon, leafIndent: c.LeafIndent}
}

// Options configures a View.
type Options[T comparable] struct {
	Provider      Provider[T]
	Host          Host
	Config        Config
	CanSelectMany bool
	EnableFilter  bool
	Commands      CommandExecutor
	Tooltips      TooltipPresenter
	Picker        Picker
	Actions       map[string]ActionFunc[T]
	Matcher       Matcher
	// Warn shows a non-error notice; defaults to the surface error channel.
	Warn       func(msg string)
	RetryDelay time.Duration
	// AfterFunc schedules render retries; defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, fn func()) (stop func() bool)
}

type viewState int

const (
	stateUninitialized viewState = iota
	stateCreating
	stateShown
	stateHidden
	stateDisposed
)

// ExpandEvent carries the node that was expanded or collapsed.
type ExpandEvent[T comparable] struct {
	Node T
}

// SelectionEvent carries the full selection after a change.
type SelectionEvent[T comparable] struct {
	Selection []T
}

// VisibilityEvent reports the view being shown or hidden.
type VisibilityEvent struct {
	Visible bool
}

// View projects a provider's tree onto a host surface and turns surface
// events into tree operations. Its methods are safe for concurrent use;
// structural renders are serialized and provider calls are never made while
// view state is locked.
type View[T comparable] struct {
	id       string
	opts     Options[T]
	provider Provider[T]
	cache    *itemCache[T]
	flat     *flattener[T]
	filter   *promptFilter[T]
	matcher  Matcher
	lock     *renderLock

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	pending     []func()
	state       viewState
	surface     Surface
	cfg         Config
	lines       []RenderedLine[T]
	messageLine int
	titleLine   int
	message     string
	title       string
	description string
	filtering   bool
	filterText  string
	candidates  []T
	haveCands   bool
	selection   []T
	failures    int
	stopRetry   func() bool
	retrySeq    int
	resolving   *resolveHandle
	resolveGen  uint64
	unsubscribe []func()

	expandEvents     emitter[ExpandEvent[T]]
	collapseEvents   emitter[ExpandEvent[T]]
	selectionEvents  emitter[SelectionEvent[T]]
	visibilityEvents emitter[VisibilityEvent]
}

// NewView builds a view bound to viewID. The surface is not allocated until
// Show.
func NewView[T comparable](viewID string, opts Options[T]) (*View[T], error) {
	if opts.Provider == nil {
		return nil, errors.New("tree view requires a provider")
	}
	if opts.Host == nil {
		return nil, errors.New("tree view requires a host")
	}
	if opts.Config == (Config{}) {
		opts.Config = DefaultConfig()
	}
	if opts.Matcher == nil {
		opts.Matcher = FuzzyMatcher{}
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cache := newItemCache(opts.Provider)
	v := &View[T]{
		id:       viewID,
		opts:     opts,
		provider: opts.Provider,
		cache:    cache,
		flat:     &flattener[T]{provider: opts.Provider, cache: cache},
		matcher:  opts.Matcher,
		lock:     newRenderLock(),
		ctx:      ctx,
		cancel:   cancel,
		cfg:      opts.Config,
		title:    viewID,
	}
	v.filter = newPromptFilter(filterHooks[T]{
		update: v.onFilterUpdate,
		exit:   v.onFilterExit,
		nav:    v.onFilterNav,
	})
	if n, ok := opts.Provider.(ChangeNotifier[T]); ok {
		v.unsubscribe = append(v.unsubscribe, n.Subscribe(func(c Change[T]) {
			go func() {
				if err := v.HandleChange(v.ctx, c); err != nil && !errors.Is(err, context.Canceled) {
					logging.Error(err)
				}
			}()
		}))
	}
	v.titleLine = 1
	return v, nil
}

// unlock releases mu and then runs the notifications queued while it was
// held, so subscribers may call back into the view.
func (v *View[T]) unlock() {
	pending := v.pending
	v.pending = nil
	v.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (v *View[T]) queue(fn func()) {
	v.pending = append(v.pending, fn)
}

// ID returns the view identifier.
func (v *View[T]) ID() string { return v.id }

// Visible reports whether a surface is currently shown.
func (v *View[T]) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state == stateShown && v.surface != nil
}

// Filtering reports whether the filter prompt is active.
func (v *View[T]) Filtering() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filtering
}

// Projection returns a copy of the body lines.
func (v *View[T]) Projection() []RenderedLine[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]RenderedLine[T], len(v.lines))
	copy(out, v.lines)
	return out
}

// BodyStart returns the surface line of the first body line.
func (v *View[T]) BodyStart() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.startLocked()
}

// OnExpand subscribes to expand events.
func (v *View[T]) OnExpand(fn func(ExpandEvent[T])) func() { return v.expandEvents.subscribe(fn) }

// OnCollapse subscribes to collapse events.
func (v *View[T]) OnCollapse(fn func(ExpandEvent[T])) func() { return v.collapseEvents.subscribe(fn) }

// OnSelectionChange subscribes to selection changes.
func (v *View[T]) OnSelectionChange(fn func(SelectionEvent[T])) func() {
	return v.selectionEvents.subscribe(fn)
}

// OnVisibilityChange subscribes to show/hide.
func (v *View[T]) OnVisibilityChange(fn func(VisibilityEvent)) func() {
	return v.visibilityEvents.subscribe(fn)
}

// Show allocates the surface and renders the tree. Calls while the view is
// already shown or being created are no-ops.
func (v *View[T]) Show(ctx context.Context) error {
	v.mu.Lock()
	switch v.state {
	case stateCreating, stateShown:
		v.mu.Unlock()
		return nil
	case stateDisposed:
		v.mu.Unlock()
		return ErrDisposed
	}
	prev := v.state
	v.state = stateCreating
	cfg := v.cfg
	v.mu.Unlock()

	surface, err := v.opts.Host.Open(ctx, v.id, OpenOptions{SignColumn: v.opts.CanSelectMany, FixedWidth: cfg.FixedWidth})

	v.mu.Lock()
	if err != nil {
		v.state = prev
		v.unlock()
		return fmt.Errorf("open surface for %s: %w", v.id, err)
	}
	if v.state == stateDisposed {
		v.unlock()
		_ = surface.Close()
		return ErrDisposed
	}
	v.surface = surface
	v.state = stateShown
	events.Tree.Show(v.id, surface.ID())
	v.queue(func() { v.visibilityEvents.emit(VisibilityEvent{Visible: true}) })
	v.updateHeadLinesLocked(true)
	v.unlock()
	return v.render(ctx)
}

// Hide closes the surface. Provider subscriptions stay alive so the view
// can be shown again.
func (v *View[T]) Hide() {
	v.mu.Lock()
	defer v.unlock()
	v.hideLocked()
}

func (v *View[T]) hideLocked() {
	if v.surface == nil {
		return
	}
	surface := v.surface
	v.surface = nil
	if v.state == stateShown {
		v.state = stateHidden
	}
	if v.filtering {
		v.filter.reset()
		v.filtering = false
		v.filterText = ""
		v.candidates, v.haveCands = nil, false
		v.lines = nil
	}
	if err := surface.Close(); err != nil {
		logging.Error(fmt.Errorf("close surface %s: %w", surface.ID(), err))
	}
	events.Tree.Hide(v.id)
	v.queue(func() { v.visibilityEvents.emit(VisibilityEvent{Visible: false}) })
}

// Unload reacts to the host discarding the surface.
func (v *View[T]) Unload() {
	v.mu.Lock()
	if v.surface != nil {
		v.surface = nil
		v.state = stateHidden
		v.queue(func() { v.visibilityEvents.emit(VisibilityEvent{Visible: false}) })
	}
	v.unlock()
	v.Dispose()
}

// Dispose tears the view down. Every later call is a no-op.
func (v *View[T]) Dispose() {
	v.mu.Lock()
	if v.state == stateDisposed {
		v.mu.Unlock()
		return
	}
	if v.stopRetry != nil {
		v.stopRetry()
		v.stopRetry = nil
	}
	v.retrySeq++
	v.filter.dispose()
	v.filtering = false
	v.filterText = ""
	v.candidates, v.haveCands = nil, false
	v.selection = nil
	v.hideLocked()
	v.state = stateDisposed
	v.cancelResolveLocked()
	v.lines = nil
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.unlock()

	v.cancel()
	if v.opts.Tooltips != nil {
		v.opts.Tooltips.Close()
	}
	v.cache.clear()
	for _, fn := range unsubscribe {
		fn()
	}
	v.expandEvents.clear()
	v.collapseEvents.clear()
	v.selectionEvents.clear()
	v.visibilityEvents.clear()
}

// SetConfig swaps glyphs and key bindings and re-renders.
func (v *View[T]) SetConfig(ctx context.Context, cfg Config) error {
	v.mu.Lock()
	v.cfg = cfg
	filtering := v.filtering
	v.mu.Unlock()
	if filtering {
		return nil
	}
	return v.render(ctx)
}

// RevealOptions tunes Reveal. Expand > 0 also expands the node itself;
// values above one expand its children and grandchildren too.
type RevealOptions struct {
	NoSelect bool
	Focus    bool
	Expand   int
}

// Reveal makes node visible, optionally expands it, then selects and
// focuses it. It requires a ParentProvider.
func (v *View[T]) Reveal(ctx context.Context, node T, opts RevealOptions) error {
	v.mu.Lock()
	if v.filtering || v.state == stateDisposed {
		v.mu.Unlock()
		return nil
	}
	_, shown := v.indexLocked(node)
	v.mu.Unlock()

	pp, ok := v.provider.(ParentProvider[T])
	if !ok {
		return fmt.Errorf("reveal: %w: parent lookup", ErrMissingCapability)
	}
	events.Tree.Reveal(v.id, opts.Expand, shown)
	if !shown {
		cur := node
		for {
			parent, found, err := pp.Parent(ctx, cur)
			if err != nil {
				return &ProviderError{Op: "parent", Err: err}
			}
			if !found {
				break
			}
			if _, err := v.cache.resolve(ctx, parent); err != nil {
				return err
			}
			v.cache.setState(parent, Expanded)
			cur = parent
		}
	}
	if opts.Expand > 0 {
		item, err := v.cache.resolve(ctx, node)
		if err != nil {
			return err
		}
		if item.CollapsibleState == None {
			return nil
		}
		v.cache.setState(node, Expanded)
		if opts.Expand > 1 {
			if err := v.expandDescendants(ctx, node, min(opts.Expand, 2)); err != nil {
				return err
			}
		}
	}
	if !shown || opts.Expand > 0 {
		if err := v.render(ctx); err != nil {
			return err
		}
	}
	if !opts.NoSelect {
		v.mu.Lock()
		v.selectLocked(node, false, false)
		v.unlock()
	}
	if opts.Focus {
		v.Focus(node)
	}
	return nil
}

// expandDescendants expands the children of node, and their children while
// depth allows.
func (v *View[T]) expandDescendants(ctx context.Context, node T, depth int) error {
	nodes, err := v.provider.Children(ctx, node)
	if err != nil {
		return &ProviderError{Op: "children", Err: err}
	}
	for len(nodes) > 0 {
		var next []T
		for _, n := range nodes {
			item, err := v.cache.resolve(ctx, n)
			if err != nil {
				return err
			}
			if item.CollapsibleState == None {
				continue
			}
			v.cache.setState(n, Expanded)
			if depth > 1 {
				children, err := v.provider.Children(ctx, n)
				if err != nil {
					return &ProviderError{Op: "children", Err: err}
				}
				next = append(next, children...)
			}
		}
		nodes = next
		depth--
	}
	return nil
}

// Focus moves the cursor to node when it is displayed.
func (v *View[T]) Focus(node T) {
	v.mu.Lock()
	defer v.unlock()
	row, ok := v.lineLocked(node)
	if !ok || v.surface == nil {
		return
	}
	v.batchLocked(func(b Batch) { b.SetCursor(row) })
}

func (v *View[T]) startLocked() int {
	start := v.messageLine + v.titleLine
	if v.filtering {
		start++
	}
	return start
}

func (v *View[T]) indexLocked(node T) (int, bool) {
	for i, l := range v.lines {
		if l.Node == node {
			return i, true
		}
	}
	return -1, false
}

func (v *View[T]) lineLocked(node T) (int, bool) {
	idx, ok := v.indexLocked(node)
	if !ok {
		return -1, false
	}
	return v.startLocked() + idx, true
}

func (v *View[T]) nodeAtLocked(line int) (T, bool) {
	idx := line - v.startLocked()
	if idx < 0 || idx >= len(v.lines) {
		var zero T
		return zero, false
	}
	return v.lines[idx].Node, true
}

// descendantsLocked counts the contiguous lines below idx that are deeper
// than it.
func (v *View[T]) descendantsLocked(idx int) int {
	level := v.lines[idx].Level
	n := 0
	for i := idx + 1; i < len(v.lines) && v.lines[i].Level > level; i++ {
		n++
	}
	return n
}

func (v *View[T]) cursorNodeLocked() (T, bool) {
	if v.surface == nil {
		var zero T
		return zero, false
	}
	return v.nodeAtLocked(v.surface.CursorLine())
}

func (v *View[T]) batchLocked(fn func(Batch)) {
	if v.surface == nil {
		return
	}
	if err := v.surface.Batch(fn); err != nil {
		v.reportLocked(fmt.Errorf("surface update: %w", err))
	}
}

// reportLocked logs err and shows it on the host error channel.
func (v *View[T]) reportLocked(err error) {
	logging.Error(err)
	if v.surface != nil {
		v.surface.ErrWrite(singleLine(err.Error()))
	}
}

func (v *View[T]) report(err error) {
	v.mu.Lock()
	defer v.unlock()
	v.reportLocked(err)
}

func (v *View[T]) warn(msg string) {
	if v.opts.Warn != nil {
		v.opts.Warn(msg)
		return
	}
	v.mu.Lock()
	defer v.unlock()
	if v.surface != nil {
		v.surface.ErrWrite(singleLine(msg))
	}
}

func (v *View[T]) active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state == stateShown && v.surface != nil
}
