// Package treetest provides a scriptable in-memory tree provider for tests.
package treetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/atomicstack/popup-tree/internal/tree"
)

// Node is one entry of the scripted tree. Pointer identity is the node
// identity seen by the view.
type Node struct {
	Name       string
	ID         string
	State      tree.CollapsibleState
	Deprecated bool
	Command    *tree.Command
	// Tooltip is only handed out by ResolveItem.
	Tooltip  *tree.Markup
	Children []*Node

	parent *Node
}

// Leaf returns a node without children.
func Leaf(name string) *Node {
	return &Node{Name: name}
}

// Expanded returns a node that starts expanded.
func Expanded(name string, children ...*Node) *Node {
	return &Node{Name: name, State: tree.Expanded, Children: children}
}

// Collapsed returns a node that starts collapsed.
func Collapsed(name string, children ...*Node) *Node {
	return &Node{Name: name, State: tree.Collapsed, Children: children}
}

func (n *Node) String() string {
	if n == nil {
		return "<root>"
	}
	return n.Name
}

// Parent returns the node's parent, nil for roots.
func (n *Node) Parent() *Node { return n.parent }

// Provider serves a tree of Nodes. It implements every optional provider
// capability.
type Provider struct {
	mu          sync.Mutex
	roots       []*Node
	failures    int
	failErr     error
	calls       map[string]int
	resolveHook func(ctx context.Context, item tree.Item, node *Node) (tree.Item, error)
	gates       map[*Node]*gate
	nextSub     int
	subs        map[int]func(tree.Change[*Node])
}

// New links the parents of roots and returns a provider serving them.
func New(roots ...*Node) *Provider {
	p := &Provider{calls: map[string]int{}, subs: map[int]func(tree.Change[*Node]){}}
	p.SetRoots(roots...)
	return p
}

// SetRoots replaces the whole tree without notifying subscribers.
func (p *Provider) SetRoots(roots ...*Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roots = roots
	for _, r := range roots {
		r.parent = nil
		link(r)
	}
}

// SetChildren replaces node's children without notifying subscribers.
func (p *Provider) SetChildren(node *Node, children ...*Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	node.Children = children
	link(node)
}

func link(n *Node) {
	for _, c := range n.Children {
		c.parent = n
		link(c)
	}
}

// FailChildren makes the next n top-level Children calls return err.
func (p *Provider) FailChildren(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = n
	p.failErr = err
}

// OnResolve replaces the default ResolveItem behaviour.
func (p *Provider) OnResolve(fn func(ctx context.Context, item tree.Item, node *Node) (tree.Item, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolveHook = fn
}

// Calls returns how often method was called.
func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

// GateChildren makes the next Children call for node block until release
// is called. entered is closed once that call is waiting.
func (p *Provider) GateChildren(node *Node) (entered <-chan struct{}, release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gates == nil {
		p.gates = map[*Node]*gate{}
	}
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	p.gates[node] = g
	var once sync.Once
	return g.entered, func() { once.Do(func() { close(g.release) }) }
}

func (p *Provider) Children(ctx context.Context, parent *Node) ([]*Node, error) {
	p.mu.Lock()
	g := p.gates[parent]
	delete(p.gates, parent)
	p.mu.Unlock()
	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["children"]++
	if parent == nil {
		if p.failures > 0 {
			p.failures--
			return nil, p.failErr
		}
		return append([]*Node(nil), p.roots...), nil
	}
	return append([]*Node(nil), parent.Children...), nil
}

func (p *Provider) TreeItem(ctx context.Context, node *Node) (tree.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["item"]++
	if node == nil {
		return tree.Item{}, fmt.Errorf("tree item for root")
	}
	state := node.State
	if state == tree.None && len(node.Children) > 0 {
		state = tree.Collapsed
	}
	return tree.Item{
		Label:            tree.TextLabel(node.Name),
		CollapsibleState: state,
		Command:          node.Command,
		Deprecated:       node.Deprecated,
		ID:               node.ID,
	}, nil
}

func (p *Provider) Parent(ctx context.Context, node *Node) (*Node, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["parent"]++
	if node == nil || node.parent == nil {
		return nil, false, nil
	}
	return node.parent, true, nil
}

func (p *Provider) ResolveItem(ctx context.Context, item tree.Item, node *Node) (tree.Item, error) {
	p.mu.Lock()
	p.calls["resolve"]++
	hook := p.resolveHook
	p.mu.Unlock()
	if hook != nil {
		return hook(ctx, item, node)
	}
	if item.Tooltip == nil {
		item.Tooltip = node.Tooltip
	}
	if item.Command == nil {
		item.Command = node.Command
	}
	return item, nil
}

func (p *Provider) Subscribe(fn func(tree.Change[*Node])) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSub++
	id := p.nextSub
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (p *Provider) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
