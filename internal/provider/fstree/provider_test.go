package fstree

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/atomicstack/popup-tree/internal/logging"
	"github.com/atomicstack/popup-tree/internal/surface"
	"github.com/atomicstack/popup-tree/internal/tree"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "popup-tree-fstree")
	if err != nil {
		panic(err)
	}
	logging.Configure(filepath.Join(dir, "fstree.log"))
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "hello")
	writeFile(t, filepath.Join(root, ".hidden"), "x")
	writeFile(t, filepath.Join(root, "c", "deep.txt"), "x")
	writeFile(t, filepath.Join(root, "a", "inner.go"), "package a")
	return root
}

func names(t *testing.T, p *Provider, entries []*Entry) []string {
	t.Helper()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		item, err := p.TreeItem(context.Background(), e)
		if err != nil {
			t.Fatalf("TreeItem: %v", err)
		}
		out = append(out, item.Label.Text)
	}
	return out
}

func TestNewRejectsFiles(t *testing.T) {
	root := sampleTree(t)
	if _, err := New(filepath.Join(root, "b.txt")); err == nil {
		t.Fatalf("expected an error for a file root")
	}
	if _, err := New(filepath.Join(root, "missing")); err == nil {
		t.Fatalf("expected an error for a missing root")
	}
}

func TestChildrenSortsDirectoriesFirst(t *testing.T) {
	root := sampleTree(t)
	p, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	top, err := p.Children(ctx, nil)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	sep := string(filepath.Separator)
	if got := names(t, p, top); !reflect.DeepEqual(got, []string{"a" + sep, "c" + sep, "b.txt"}) {
		t.Fatalf("top level = %v", got)
	}
	inner, _ := p.Children(ctx, top[0])
	if got := names(t, p, inner); !reflect.DeepEqual(got, []string{"inner.go"}) {
		t.Fatalf("a/ = %v", got)
	}
	again, _ := p.Children(ctx, nil)
	if again[0] != top[0] || again[2] != top[2] {
		t.Fatalf("expected interned entries to be reused")
	}
	leaf, _ := p.Children(ctx, top[2])
	if len(leaf) != 0 {
		t.Fatalf("files have no children")
	}
}

func TestHiddenEntries(t *testing.T) {
	root := sampleTree(t)
	p, _ := New(root, WithHidden(true))
	top, _ := p.Children(context.Background(), nil)
	if got := names(t, p, top); got[len(got)-1] != "b.txt" || got[2] != ".hidden" {
		t.Fatalf("expected dot-files listed with files, got %v", got)
	}
}

func TestTreeItemCommands(t *testing.T) {
	root := sampleTree(t)
	p, _ := New(root)
	ctx := context.Background()
	top, _ := p.Children(ctx, nil)
	dir, _ := p.TreeItem(ctx, top[0])
	if dir.CollapsibleState != tree.Collapsed || dir.Command != nil || dir.ID != "a" {
		t.Fatalf("unexpected dir item %+v", dir)
	}
	file, _ := p.TreeItem(ctx, top[2])
	if file.CollapsibleState != tree.None || file.Command == nil || file.Command.ID != OpenCommand {
		t.Fatalf("unexpected file item %+v", file)
	}
	if file.Command.Arguments[0] != filepath.Join(root, "b.txt") {
		t.Fatalf("command argument = %v", file.Command.Arguments)
	}
}

func TestParentAndLookup(t *testing.T) {
	root := sampleTree(t)
	p, _ := New(root)
	ctx := context.Background()
	top, _ := p.Children(ctx, nil)
	inner, _ := p.Children(ctx, top[0])
	parent, ok, err := p.Parent(ctx, inner[0])
	if err != nil || !ok || parent != top[0] {
		t.Fatalf("Parent = %v %v %v", parent, ok, err)
	}
	if _, ok, _ := p.Parent(ctx, top[0]); ok {
		t.Fatalf("top-level entries have no parent")
	}

	deep, ok := p.Lookup(filepath.Join(root, "c", "deep.txt"))
	if !ok || deep.Dir {
		t.Fatalf("Lookup(deep.txt) = %+v %v", deep, ok)
	}
	cDir, ok, _ := p.Parent(ctx, deep)
	if !ok || cDir != top[1] {
		t.Fatalf("expected c/ to be the interned parent, got %v", cDir)
	}
	if same, _ := p.Lookup(filepath.Join(root, "a", "inner.go")); same != inner[0] {
		t.Fatalf("Lookup should return the interned entry")
	}
	if _, ok := p.Lookup(filepath.Dir(root)); ok {
		t.Fatalf("paths outside the root must not resolve")
	}
}

func TestResolveItemTooltip(t *testing.T) {
	root := sampleTree(t)
	p, _ := New(root)
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	path := filepath.Join(root, "b.txt")
	if err := os.Chtimes(path, now.Add(-3*time.Hour), now.Add(-3*time.Hour)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	e, _ := p.Lookup(path)
	item, _ := p.TreeItem(context.Background(), e)
	resolved, err := p.ResolveItem(context.Background(), item, e)
	if err != nil {
		t.Fatalf("ResolveItem: %v", err)
	}
	if resolved.Tooltip == nil || resolved.Tooltip.Kind != tree.MarkupPlain {
		t.Fatalf("expected a plaintext tooltip, got %+v", resolved.Tooltip)
	}
	for _, want := range []string{path, "5 B (5 bytes)", "modified  3 hours ago"} {
		if !strings.Contains(resolved.Tooltip.Value, want) {
			t.Fatalf("tooltip missing %q:\n%s", want, resolved.Tooltip.Value)
		}
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := p.ResolveItem(context.Background(), item, e); err == nil {
		t.Fatalf("expected an error for a removed file")
	}
}

func waitChange(t *testing.T, ch <-chan tree.Change[*Entry]) tree.Change[*Entry] {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a change")
	}
	return tree.Change[*Entry]{}
}

func TestWatchPublishesDirectoryChanges(t *testing.T) {
	root := sampleTree(t)
	p, _ := New(root, WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer p.Close()

	changes := make(chan tree.Change[*Entry], 8)
	p.Subscribe(func(c tree.Change[*Entry]) { changes <- c })

	top, _ := p.Children(ctx, nil)
	if _, err := p.Children(ctx, top[0]); err != nil {
		t.Fatalf("Children(a): %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Skipf("skipping: fsnotify unavailable: %v", err)
	}

	writeFile(t, filepath.Join(root, "a", "new.go"), "package a")
	c := waitChange(t, changes)
	if c.All || c.Node != top[0] {
		t.Fatalf("expected a change for a/, got %+v", c)
	}

	writeFile(t, filepath.Join(root, "z.txt"), "z")
	c = waitChange(t, changes)
	if !c.All {
		t.Fatalf("expected a full change for the root, got %+v", c)
	}
}

func TestViewShowsDirectory(t *testing.T) {
	root := sampleTree(t)
	p, _ := New(root)
	host := surface.NewHost()
	view, err := tree.NewView[*Entry]("files", tree.Options[*Entry]{Provider: p, Host: host})
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	defer view.Dispose()
	ctx := context.Background()
	if err := view.Show(ctx); err != nil {
		t.Fatalf("Show: %v", err)
	}
	sep := string(filepath.Separator)
	want := []string{"files", "+ a" + sep, "+ c" + sep, "  b.txt"}
	if got := host.Buffer("files").Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	top, _ := p.Children(ctx, nil)
	if err := view.ToggleExpand(ctx, top[0]); err != nil {
		t.Fatalf("ToggleExpand: %v", err)
	}
	want = []string{"files", "- a" + sep, "    inner.go", "+ c" + sep, "  b.txt"}
	if got := host.Buffer("files").Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}
