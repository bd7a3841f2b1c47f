// Package fstree serves a directory hierarchy as a tree and reports
// directory changes through fsnotify.
package fstree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atomicstack/popup-tree/internal/format/table"
	"github.com/atomicstack/popup-tree/internal/logging"
	"github.com/atomicstack/popup-tree/internal/logging/events"
	"github.com/atomicstack/popup-tree/internal/tree"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
)

// OpenCommand is the command id attached to files. Its single argument is
// the absolute path.
const OpenCommand = "fs.open"

const defaultDebounce = 100 * time.Millisecond

// Entry is an interned handle on one path below the root.
type Entry struct {
	Path string
	Dir  bool
}

func (e *Entry) String() string {
	if e == nil {
		return "<root>"
	}
	return e.Path
}

// Provider implements tree.Provider over a directory.
type Provider struct {
	root       string
	showHidden bool
	debounce   time.Duration
	now        func() time.Time

	mu       sync.Mutex
	interned map[string]*Entry
	parents  map[*Entry]*Entry
	watcher  *fsnotify.Watcher
	watched  map[string]bool
	timers   map[string]*time.Timer
	closed   bool

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(tree.Change[*Entry])
}

// Option configures a Provider.
type Option func(*Provider)

// WithHidden includes dot-files.
func WithHidden(show bool) Option {
	return func(p *Provider) { p.showHidden = show }
}

// WithDebounce sets how long directory events are coalesced before a change
// is published.
func WithDebounce(d time.Duration) Option {
	return func(p *Provider) { p.debounce = d }
}

// New returns a provider rooted at root, which must be a directory.
func New(root string, opts ...Option) (*Provider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	p := &Provider{
		root:     abs,
		debounce: defaultDebounce,
		now:      time.Now,
		interned: map[string]*Entry{},
		parents:  map[*Entry]*Entry{},
		watched:  map[string]bool{},
		timers:   map[string]*time.Timer{},
		subs:     map[int]func(tree.Change[*Entry]){},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Root returns the absolute root directory.
func (p *Provider) Root() string { return p.root }

// Start begins watching the directories whose children have been listed.
// It stops when ctx is done or Close is called.
func (p *Provider) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fs watcher: %w", err)
	}
	p.mu.Lock()
	if p.closed || p.watcher != nil {
		p.mu.Unlock()
		w.Close()
		return nil
	}
	p.watcher = w
	dirs := make([]string, 0, len(p.watched)+1)
	dirs = append(dirs, p.root)
	for dir := range p.watched {
		if dir != p.root {
			dirs = append(dirs, dir)
		}
	}
	p.mu.Unlock()
	for _, dir := range dirs {
		p.watch(dir)
	}
	go p.loop(ctx, w)
	return nil
}

// Close stops the watcher and pending notifications.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for dir, t := range p.timers {
		t.Stop()
		delete(p.timers, dir)
	}
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	p.watcher = nil
	return err
}

func (p *Provider) watch(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watched[dir] = true
	if p.watcher == nil {
		return
	}
	if err := p.watcher.Add(dir); err != nil {
		logging.Error(fmt.Errorf("watch %s: %w", dir, err))
		return
	}
	events.Provider.Watch(dir, true)
}

func (p *Provider) loop(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			_ = p.Close()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				p.forget(ev.Name)
			}
			p.schedule(filepath.Dir(ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.Error(fmt.Errorf("fs watcher: %w", err))
		}
	}
}

// forget drops a removed path from the watch list. fsnotify removes the
// watch itself.
func (p *Provider) forget(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watched[path] {
		delete(p.watched, path)
		events.Provider.Watch(path, false)
	}
}

// schedule publishes a change for dir once its events settle.
func (p *Provider) schedule(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if t, ok := p.timers[dir]; ok {
		t.Reset(p.debounce)
		return
	}
	p.timers[dir] = time.AfterFunc(p.debounce, func() {
		p.mu.Lock()
		delete(p.timers, dir)
		closed := p.closed
		entry := p.interned[dir]
		p.mu.Unlock()
		if closed {
			return
		}
		p.publish(dir, entry)
	})
}

func (p *Provider) publish(dir string, entry *Entry) {
	change := tree.Change[*Entry]{Node: entry}
	if dir == p.root || entry == nil {
		change = tree.Change[*Entry]{All: true}
	}
	events.Provider.Change(dir, change.All)
	p.subMu.Lock()
	fns := make([]func(tree.Change[*Entry]), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

// Subscribe registers fn for change notifications.
func (p *Provider) Subscribe(fn func(tree.Change[*Entry])) func() {
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

func (p *Provider) intern(path string, dir bool, parent *Entry) *Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.interned[path]
	if !ok || e.Dir != dir {
		e = &Entry{Path: path, Dir: dir}
		p.interned[path] = e
	}
	if parent != nil {
		p.parents[e] = parent
	}
	return e
}

// Children lists a directory with subdirectories first, each group sorted
// by name.
func (p *Provider) Children(ctx context.Context, parent *Entry) ([]*Entry, error) {
	dir := p.root
	if parent != nil {
		if !parent.Dir {
			return nil, nil
		}
		dir = parent.Path
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && parent != nil {
			return nil, nil
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})
	out := make([]*Entry, 0, len(entries))
	for _, de := range entries {
		if !p.showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		out = append(out, p.intern(filepath.Join(dir, de.Name()), de.IsDir(), parent))
	}
	p.watch(dir)
	return out, nil
}

func (p *Provider) TreeItem(ctx context.Context, e *Entry) (tree.Item, error) {
	rel, err := filepath.Rel(p.root, e.Path)
	if err != nil {
		rel = e.Path
	}
	item := tree.Item{
		ID:    rel,
		Label: tree.TextLabel(filepath.Base(e.Path)),
	}
	if e.Dir {
		item.CollapsibleState = tree.Collapsed
		item.Label.Text += string(filepath.Separator)
		return item, nil
	}
	item.Command = &tree.Command{ID: OpenCommand, Title: "Open " + rel, Arguments: []string{e.Path}}
	return item, nil
}

func (p *Provider) Parent(ctx context.Context, e *Entry) (*Entry, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	parent, ok := p.parents[e]
	return parent, ok, nil
}

// ResolveItem adds a tooltip with size and modification time.
func (p *Provider) ResolveItem(ctx context.Context, item tree.Item, e *Entry) (tree.Item, error) {
	info, err := os.Stat(e.Path)
	if err != nil {
		return item, err
	}
	size := "directory"
	if !info.IsDir() {
		size = fmt.Sprintf("%s (%s bytes)", humanize.Bytes(uint64(info.Size())), humanize.Comma(info.Size()))
	}
	rows := table.KeyValues(
		[2]string{"size", size},
		[2]string{"modified", humanize.RelTime(info.ModTime(), p.now(), "ago", "from now")},
		[2]string{"mode", info.Mode().String()},
	)
	value := e.Path + "\n" + strings.Join(rows, "\n")
	item.Tooltip = &tree.Markup{Kind: tree.MarkupPlain, Value: value}
	return item, nil
}

// Lookup returns the interned entry for path, interning it and its
// ancestors below the root when needed. ok is false for paths outside the
// root.
func (p *Provider) Lookup(path string) (*Entry, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	rel, err := filepath.Rel(p.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, false
	}
	var parent *Entry
	cur := p.root
	parts := strings.Split(rel, string(filepath.Separator))
	for i, part := range parts {
		cur = filepath.Join(cur, part)
		dir := i < len(parts)-1
		if !dir {
			if info, err := os.Stat(cur); err == nil {
				dir = info.IsDir()
			}
		}
		parent = p.intern(cur, dir, parent)
	}
	return parent, true
}
