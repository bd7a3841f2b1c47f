package tmuxtree

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atomicstack/popup-tree/internal/backend"
	"github.com/atomicstack/popup-tree/internal/logging"
	"github.com/atomicstack/popup-tree/internal/logging/events"
	"github.com/atomicstack/popup-tree/internal/tmux"
	"github.com/atomicstack/popup-tree/internal/tree"
	"github.com/dustin/go-humanize"
)

// SwitchCommand is the command id attached to every item. Its single
// argument is the tmux target to switch to.
const SwitchCommand = "tmux.switch-client"

// Provider implements tree.Provider over snapshots of one tmux server.
type Provider struct {
	socketPath string

	fetch   func() (tmux.Snapshot, error)
	preview func(socketPath, target string) ([]string, error)
	kill    func(socketPath string, targets ...string) error
	now     func() time.Time

	mu          sync.RWMutex
	loaded      bool
	fingerprint string
	interned    map[string]*Node
	roots       []*Node
	children    map[*Node][]*Node
	parents     map[*Node]*Node
	sessions    map[*Node]tmux.Session
	windows     map[*Node]tmux.Window
	panes       map[*Node]tmux.Pane

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(tree.Change[*Node])
}

// New returns a provider for the server at socketPath. Nothing is fetched
// until the first Children call or Apply.
func New(socketPath string) *Provider {
	p := &Provider{
		socketPath: socketPath,
		preview:    tmux.Preview,
		kill:       tmux.Kill,
		now:        time.Now,
		interned:   map[string]*Node{},
		subs:       map[int]func(tree.Change[*Node]){},
	}
	p.fetch = func() (tmux.Snapshot, error) { return tmux.FetchSnapshot(p.socketPath) }
	return p
}

// Refresh fetches a new snapshot and applies it.
func (p *Provider) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := p.fetch()
	if err != nil {
		return fmt.Errorf("tmux snapshot: %w", err)
	}
	p.Apply(snap)
	return nil
}

// Run applies every snapshot the watcher publishes until ctx is done or the
// event stream closes. Poll errors are logged and skipped.
func (p *Provider) Run(ctx context.Context, evts <-chan backend.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-evts:
			if !ok {
				return
			}
			if evt.Err != nil {
				logging.Error(fmt.Errorf("poll %s: %w", evt.Source, evt.Err))
				continue
			}
			if snap, ok := evt.Data.(tmux.Snapshot); ok {
				p.Apply(snap)
			}
		}
	}
}

// Apply indexes snap and notifies subscribers with a full change when the
// visible tree differs from the previous snapshot. It reports whether a
// change was published.
func (p *Provider) Apply(snap tmux.Snapshot) bool {
	fp := fingerprint(snap)

	p.mu.Lock()
	first := !p.loaded
	changed := first || fp != p.fingerprint
	p.loaded = true
	p.fingerprint = fp
	p.index(snap)
	p.mu.Unlock()

	var windows, panes int
	for _, s := range snap.Sessions {
		windows += len(s.Windows)
		for _, w := range s.Windows {
			panes += len(w.Panes)
		}
	}
	events.Tmux.Snapshot(len(snap.Sessions), windows, panes)

	if !changed || first {
		return false
	}
	events.Provider.Change("tmux", true)
	p.notify(tree.Change[*Node]{All: true})
	return true
}

// index rebuilds the lookup tables, reusing interned nodes. Callers hold mu.
func (p *Provider) index(snap tmux.Snapshot) {
	live := make(map[string]*Node, len(p.interned))
	intern := func(kind Kind, key string) *Node {
		k := nodeKey(kind, key)
		n, ok := p.interned[k]
		if !ok {
			n = &Node{Kind: kind, Key: key}
		}
		live[k] = n
		return n
	}
	p.roots = p.roots[:0]
	p.children = map[*Node][]*Node{}
	p.parents = map[*Node]*Node{}
	p.sessions = map[*Node]tmux.Session{}
	p.windows = map[*Node]tmux.Window{}
	p.panes = map[*Node]tmux.Pane{}
	for _, s := range snap.Sessions {
		sn := intern(KindSession, s.Name)
		p.roots = append(p.roots, sn)
		p.sessions[sn] = s
		for _, w := range s.Windows {
			wn := intern(KindWindow, w.ID)
			p.windows[wn] = w
			p.parents[wn] = sn
			p.children[sn] = append(p.children[sn], wn)
			for _, pane := range w.Panes {
				pn := intern(KindPane, pane.ID)
				p.panes[pn] = pane
				p.parents[pn] = wn
				p.children[wn] = append(p.children[wn], pn)
			}
		}
	}
	p.interned = live
}

// fingerprint covers every field that shows up in a rendered line.
func fingerprint(snap tmux.Snapshot) string {
	var b strings.Builder
	b.WriteString(snap.Current)
	for _, s := range snap.Sessions {
		fmt.Fprintf(&b, "\x00s%s|%t", s.Name, s.Attached)
		for _, w := range s.Windows {
			fmt.Fprintf(&b, "\x00w%s|%d|%s|%t", w.ID, w.Index, w.Name, w.Active)
			for _, pane := range w.Panes {
				fmt.Fprintf(&b, "\x00p%s|%d|%s|%s|%t", pane.ID, pane.Index, pane.Command, pane.Title, pane.Current)
			}
		}
	}
	return b.String()
}

func (p *Provider) ensureLoaded(ctx context.Context) error {
	p.mu.RLock()
	loaded := p.loaded
	p.mu.RUnlock()
	if loaded {
		return nil
	}
	return p.Refresh(ctx)
}

func (p *Provider) Children(ctx context.Context, parent *Node) ([]*Node, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	var src []*Node
	if parent == nil {
		src = p.roots
	} else {
		src = p.children[parent]
	}
	return append([]*Node(nil), src...), nil
}

func (p *Provider) TreeItem(ctx context.Context, node *Node) (tree.Item, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch node.Kind {
	case KindSession:
		s, ok := p.sessions[node]
		if !ok {
			return tree.Item{}, fmt.Errorf("unknown %s", node)
		}
		item := tree.Item{
			ID:               "session:" + s.Name,
			Label:            tree.TextLabel(s.Name),
			CollapsibleState: tree.Collapsed,
			Command:          switchCommand(s.Name),
		}
		if s.Current {
			item.CollapsibleState = tree.Expanded
			item.Icon = &tree.Icon{Text: "*", Group: "Special"}
		}
		if s.Attached {
			item.Label.Text += " (attached)"
		}
		if len(s.Windows) == 0 {
			item.CollapsibleState = tree.None
		}
		return item, nil
	case KindWindow:
		w, ok := p.windows[node]
		if !ok {
			return tree.Item{}, fmt.Errorf("unknown %s", node)
		}
		item := tree.Item{
			ID:               "window:" + w.ID,
			Label:            tree.TextLabel(fmt.Sprintf("%d: %s", w.Index, w.Name)),
			CollapsibleState: tree.Collapsed,
			Command:          switchCommand(w.Target),
		}
		if w.Active && p.sessions[p.parents[node]].Current {
			item.CollapsibleState = tree.Expanded
		}
		if len(w.Panes) == 0 {
			item.CollapsibleState = tree.None
		}
		return item, nil
	case KindPane:
		pane, ok := p.panes[node]
		if !ok {
			return tree.Item{}, fmt.Errorf("unknown %s", node)
		}
		text := fmt.Sprintf("%d: %s", pane.Index, pane.Command)
		if title := strings.TrimSpace(pane.Title); title != "" && title != pane.Command {
			text += " " + title
		}
		item := tree.Item{
			ID:      "pane:" + pane.ID,
			Label:   tree.TextLabel(text),
			Command: switchCommand(pane.Target),
		}
		if pane.Current {
			item.Icon = &tree.Icon{Text: ">", Group: "Special"}
		}
		return item, nil
	}
	return tree.Item{}, fmt.Errorf("unknown node kind %d", node.Kind)
}

func switchCommand(target string) *tree.Command {
	return &tree.Command{ID: SwitchCommand, Title: "Switch to " + target, Arguments: []string{target}}
}

func (p *Provider) Parent(ctx context.Context, node *Node) (*Node, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	parent, ok := p.parents[node]
	return parent, ok, nil
}

// ResolveItem attaches a markdown tooltip with the object's details and a
// preview of its contents.
func (p *Provider) ResolveItem(ctx context.Context, item tree.Item, node *Node) (tree.Item, error) {
	target, details := p.describe(node)
	if target == "" {
		return item, nil
	}
	lines, err := p.preview(p.socketPath, target)
	if err != nil {
		logging.Error(err)
		lines = []string{"(preview unavailable)"}
	}
	if err := ctx.Err(); err != nil {
		return item, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", target)
	for _, d := range details {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	b.WriteString("\n```\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n```")
	item.Tooltip = &tree.Markup{Kind: tree.MarkupMarkdown, Value: b.String()}
	return item, nil
}

func (p *Provider) describe(node *Node) (string, []string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	now := p.now()
	switch node.Kind {
	case KindSession:
		s, ok := p.sessions[node]
		if !ok {
			return "", nil
		}
		details := []string{fmt.Sprintf("%d windows", len(s.Windows))}
		if !s.Created.IsZero() {
			details = append(details, "created "+humanize.RelTime(s.Created, now, "ago", "from now"))
		}
		if len(s.Clients) > 0 {
			details = append(details, "clients: "+strings.Join(s.Clients, ", "))
		}
		return s.Name, details
	case KindWindow:
		w, ok := p.windows[node]
		if !ok {
			return "", nil
		}
		details := []string{fmt.Sprintf("%d panes", len(w.Panes))}
		if !w.Activity.IsZero() {
			details = append(details, "active "+humanize.RelTime(w.Activity, now, "ago", "from now"))
		}
		return w.Target, details
	case KindPane:
		pane, ok := p.panes[node]
		if !ok {
			return "", nil
		}
		details := []string{
			fmt.Sprintf("%dx%d", pane.Width, pane.Height),
			"command: " + pane.Command,
		}
		if pane.Path != "" {
			details = append(details, "path: "+pane.Path)
		}
		return pane.Target, details
	}
	return "", nil
}

// Subscribe registers fn for change notifications.
func (p *Provider) Subscribe(fn func(tree.Change[*Node])) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

func (p *Provider) notify(c tree.Change[*Node]) {
	p.subMu.Lock()
	fns := make([]func(tree.Change[*Node]), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Target returns the tmux target of node, or "" when it is gone.
func (p *Provider) Target(node *Node) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch node.Kind {
	case KindSession:
		return p.sessions[node].Name
	case KindWindow:
		return p.windows[node].Target
	case KindPane:
		return p.panes[node].Target
	}
	return ""
}

// Actions returns the actions offered on tmux nodes.
func (p *Provider) Actions() map[string]tree.ActionFunc[*Node] {
	return map[string]tree.ActionFunc[*Node]{
		"kill": p.killAction,
	}
}

// killAction kills the node, or every selected node, and refreshes.
func (p *Provider) killAction(ctx context.Context, node *Node, selection []*Node) error {
	nodes := selection
	if len(nodes) == 0 {
		nodes = []*Node{node}
	}
	targets := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if t := p.Target(n); t != "" {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	if err := p.kill(p.socketPath, targets...); err != nil {
		return err
	}
	events.Action.Success(fmt.Sprintf("killed %s", strings.Join(targets, ", ")))
	return p.Refresh(ctx)
}
