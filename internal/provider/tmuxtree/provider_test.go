package tmuxtree

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atomicstack/popup-tree/internal/backend"
	"github.com/atomicstack/popup-tree/internal/logging"
	"github.com/atomicstack/popup-tree/internal/surface"
	"github.com/atomicstack/popup-tree/internal/tmux"
	"github.com/atomicstack/popup-tree/internal/tree"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "popup-tree-tmuxtree")
	if err != nil {
		panic(err)
	}
	logging.Configure(filepath.Join(dir, "tmuxtree.log"))
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSnapshot() tmux.Snapshot {
	return tmux.Snapshot{
		Current: "dev",
		Sessions: []tmux.Session{
			{
				Name: "dev", Attached: true, Current: true, Clients: []string{"/dev/pts/1"},
				Created: baseTime.Add(-2 * time.Hour),
				Windows: []tmux.Window{
					{ID: "@1", Target: "dev:0", Session: "dev", Index: 0, Name: "edit", Active: true, Panes: []tmux.Pane{
						{ID: "%1", Target: "dev:0.0", Session: "dev", Index: 0, Command: "vim", Title: "left", Current: true, Active: true, Width: 80, Height: 24, Path: "/src"},
						{ID: "%2", Target: "dev:0.1", Session: "dev", Index: 1, Command: "zsh", Title: "zsh"},
					}},
					{ID: "@2", Target: "dev:1", Session: "dev", Index: 1, Name: "logs", Panes: []tmux.Pane{
						{ID: "%3", Target: "dev:1.0", Session: "dev", WindowIndex: 1, Index: 0, Command: "tail"},
					}},
				},
			},
			{
				Name: "ops",
				Windows: []tmux.Window{
					{ID: "@3", Target: "ops:0", Session: "ops", Index: 0, Name: "shell", Active: true, Panes: []tmux.Pane{
						{ID: "%4", Target: "ops:0.0", Session: "ops", Index: 0, Command: "bash"},
					}},
				},
			},
		},
	}
}

type stubs struct {
	mu       sync.Mutex
	snap     tmux.Snapshot
	fetchErr error
	fetches  int
	killed   [][]string
	previews []string
}

func newStubbed(t *testing.T) (*Provider, *stubs) {
	t.Helper()
	s := &stubs{snap: sampleSnapshot()}
	p := New("/tmp/test.sock")
	p.fetch = func() (tmux.Snapshot, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fetches++
		return s.snap, s.fetchErr
	}
	p.preview = func(socketPath, target string) ([]string, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.previews = append(s.previews, target)
		return []string{"line one", "line two"}, nil
	}
	p.kill = func(socketPath string, targets ...string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.killed = append(s.killed, targets)
		return nil
	}
	p.now = func() time.Time { return baseTime }
	return p, s
}

func labels(t *testing.T, p *Provider, nodes []*Node) []string {
	t.Helper()
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		item, err := p.TreeItem(context.Background(), n)
		if err != nil {
			t.Fatalf("TreeItem(%s): %v", n, err)
		}
		out = append(out, item.Label.Text)
	}
	return out
}

func TestChildrenLoadsLazily(t *testing.T) {
	p, s := newStubbed(t)
	ctx := context.Background()
	roots, err := p.Children(ctx, nil)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if got := labels(t, p, roots); !reflect.DeepEqual(got, []string{"dev (attached)", "ops"}) {
		t.Fatalf("root labels = %v", got)
	}
	windows, _ := p.Children(ctx, roots[0])
	if got := labels(t, p, windows); !reflect.DeepEqual(got, []string{"0: edit", "1: logs"}) {
		t.Fatalf("window labels = %v", got)
	}
	panes, _ := p.Children(ctx, windows[0])
	if got := labels(t, p, panes); !reflect.DeepEqual(got, []string{"0: vim left", "1: zsh"}) {
		t.Fatalf("pane labels = %v", got)
	}
	if s.fetches != 1 {
		t.Fatalf("expected a single fetch, got %d", s.fetches)
	}
}

func TestTreeItemStates(t *testing.T) {
	p, _ := newStubbed(t)
	ctx := context.Background()
	roots, _ := p.Children(ctx, nil)
	dev, _ := p.TreeItem(ctx, roots[0])
	if dev.CollapsibleState != tree.Expanded || dev.Icon == nil || dev.Icon.Text != "*" {
		t.Fatalf("current session should be expanded with a marker: %+v", dev)
	}
	if dev.Command == nil || dev.Command.ID != SwitchCommand || !reflect.DeepEqual(dev.Command.Arguments, []string{"dev"}) {
		t.Fatalf("unexpected session command %+v", dev.Command)
	}
	ops, _ := p.TreeItem(ctx, roots[1])
	if ops.CollapsibleState != tree.Collapsed || ops.Icon != nil {
		t.Fatalf("other session should be collapsed: %+v", ops)
	}
	opsWindows, _ := p.Children(ctx, roots[1])
	shell, _ := p.TreeItem(ctx, opsWindows[0])
	if shell.CollapsibleState != tree.Collapsed {
		t.Fatalf("active window of a background session should stay collapsed: %+v", shell)
	}
	devWindows, _ := p.Children(ctx, roots[0])
	edit, _ := p.TreeItem(ctx, devWindows[0])
	logs, _ := p.TreeItem(ctx, devWindows[1])
	if edit.CollapsibleState != tree.Expanded || logs.CollapsibleState != tree.Collapsed {
		t.Fatalf("unexpected window states %v %v", edit.CollapsibleState, logs.CollapsibleState)
	}
	panes, _ := p.Children(ctx, devWindows[0])
	vim, _ := p.TreeItem(ctx, panes[0])
	if vim.CollapsibleState != tree.None || vim.Icon == nil || vim.Command.Arguments[0] != "dev:0.0" {
		t.Fatalf("unexpected pane item %+v", vim)
	}
}

func TestIdentitySurvivesSnapshots(t *testing.T) {
	p, s := newStubbed(t)
	ctx := context.Background()
	roots, _ := p.Children(ctx, nil)
	windows, _ := p.Children(ctx, roots[0])

	s.mu.Lock()
	s.snap.Sessions[0].Windows[0].Name = "renamed"
	s.mu.Unlock()
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	roots2, _ := p.Children(ctx, nil)
	windows2, _ := p.Children(ctx, roots2[0])
	if roots2[0] != roots[0] || windows2[0] != windows[0] {
		t.Fatalf("expected interned nodes to be reused")
	}
	item, _ := p.TreeItem(ctx, windows[0])
	if item.Label.Text != "0: renamed" {
		t.Fatalf("label = %q", item.Label.Text)
	}
}

func TestApplyNotifiesOnlyOnChange(t *testing.T) {
	p, _ := newStubbed(t)
	var changes []tree.Change[*Node]
	unsubscribe := p.Subscribe(func(c tree.Change[*Node]) { changes = append(changes, c) })

	snap := sampleSnapshot()
	if p.Apply(snap) {
		t.Fatalf("first snapshot must not publish")
	}
	if p.Apply(sampleSnapshot()) {
		t.Fatalf("identical snapshot must not publish")
	}
	snap.Sessions[1].Windows[0].Panes[0].Command = "htop"
	if !p.Apply(snap) {
		t.Fatalf("changed snapshot must publish")
	}
	if len(changes) != 1 || !changes[0].All {
		t.Fatalf("unexpected changes %+v", changes)
	}
	unsubscribe()
	snap.Current = "ops"
	p.Apply(snap)
	if len(changes) != 1 {
		t.Fatalf("unsubscribed listener was called")
	}
}

func TestParent(t *testing.T) {
	p, _ := newStubbed(t)
	ctx := context.Background()
	roots, _ := p.Children(ctx, nil)
	windows, _ := p.Children(ctx, roots[0])
	panes, _ := p.Children(ctx, windows[1])
	parent, ok, err := p.Parent(ctx, panes[0])
	if err != nil || !ok || parent != windows[1] {
		t.Fatalf("Parent(pane) = %v %v %v", parent, ok, err)
	}
	if _, ok, _ := p.Parent(ctx, roots[0]); ok {
		t.Fatalf("sessions have no parent")
	}
}

func TestResolveItemBuildsTooltip(t *testing.T) {
	p, s := newStubbed(t)
	ctx := context.Background()
	roots, _ := p.Children(ctx, nil)
	item, _ := p.TreeItem(ctx, roots[0])
	resolved, err := p.ResolveItem(ctx, item, roots[0])
	if err != nil {
		t.Fatalf("ResolveItem: %v", err)
	}
	if resolved.Tooltip == nil || resolved.Tooltip.Kind != tree.MarkupMarkdown {
		t.Fatalf("expected markdown tooltip, got %+v", resolved.Tooltip)
	}
	for _, want := range []string{"**dev**", "2 windows", "created 2 hours ago", "clients: /dev/pts/1", "line one\nline two"} {
		if !strings.Contains(resolved.Tooltip.Value, want) {
			t.Fatalf("tooltip missing %q:\n%s", want, resolved.Tooltip.Value)
		}
	}
	if !reflect.DeepEqual(s.previews, []string{"dev"}) {
		t.Fatalf("previews = %v", s.previews)
	}

	windows, _ := p.Children(ctx, roots[0])
	panes, _ := p.Children(ctx, windows[0])
	paneItem, _ := p.TreeItem(ctx, panes[0])
	resolved, _ = p.ResolveItem(ctx, paneItem, panes[0])
	if !strings.Contains(resolved.Tooltip.Value, "80x24") || !strings.Contains(resolved.Tooltip.Value, "path: /src") {
		t.Fatalf("unexpected pane tooltip:\n%s", resolved.Tooltip.Value)
	}
}

func TestKillActionUsesSelection(t *testing.T) {
	p, s := newStubbed(t)
	ctx := context.Background()
	roots, _ := p.Children(ctx, nil)
	windows, _ := p.Children(ctx, roots[0])
	kill := p.Actions()["kill"]
	if kill == nil {
		t.Fatalf("kill action missing")
	}
	if err := kill(ctx, windows[1], nil); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := kill(ctx, windows[0], []*Node{windows[0], roots[1]}); err != nil {
		t.Fatalf("kill selection: %v", err)
	}
	want := [][]string{{"dev:1"}, {"dev:0", "ops"}}
	if !reflect.DeepEqual(s.killed, want) {
		t.Fatalf("killed = %v, want %v", s.killed, want)
	}
	if s.fetches != 3 {
		t.Fatalf("expected a refresh after each kill, got %d fetches", s.fetches)
	}
}

func TestRefreshWrapsFetchErrors(t *testing.T) {
	p, s := newStubbed(t)
	s.fetchErr = errors.New("no server")
	if _, err := p.Children(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "no server") {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestRunAppliesWatcherEvents(t *testing.T) {
	p, _ := newStubbed(t)
	p.Apply(sampleSnapshot())
	changed := make(chan struct{}, 1)
	p.Subscribe(func(tree.Change[*Node]) { changed <- struct{}{} })

	evts := make(chan backend.Event, 2)
	snap := sampleSnapshot()
	snap.Sessions = snap.Sessions[:1]
	evts <- backend.Event{Source: "tmux", Err: errors.New("transient")}
	evts <- backend.Event{Source: "tmux", Data: snap}
	close(evts)
	p.Run(context.Background(), evts)

	select {
	case <-changed:
	default:
		t.Fatalf("expected a change after the new snapshot")
	}
	roots, _ := p.Children(context.Background(), nil)
	if len(roots) != 1 {
		t.Fatalf("expected one session after the update, got %d", len(roots))
	}
}

func TestViewRendersSessions(t *testing.T) {
	p, _ := newStubbed(t)
	host := surface.NewHost()
	view, err := tree.NewView[*Node]("tmux", tree.Options[*Node]{Provider: p, Host: host})
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	defer view.Dispose()
	if err := view.Show(context.Background()); err != nil {
		t.Fatalf("Show: %v", err)
	}
	got := host.Buffer("tmux").Lines()
	want := []string{
		"tmux",
		"- * dev (attached)",
		"  - 0: edit",
		"      > 0: vim left",
		"      1: zsh",
		"  + 1: logs",
		"+ ops",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}
