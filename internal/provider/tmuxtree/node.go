// Package tmuxtree serves a tmux server's sessions, windows and panes as a
// tree.
package tmuxtree

import "fmt"

// Kind is the tmux object a node stands for.
type Kind int

const (
	KindSession Kind = iota
	KindWindow
	KindPane
)

func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindPane:
		return "pane"
	default:
		return "session"
	}
}

// Node is an interned handle on one tmux object. The provider hands out the
// same pointer for the same object across refreshes: sessions are keyed by
// name, windows and panes by their tmux id.
type Node struct {
	Kind Kind
	Key  string
}

func (n *Node) String() string {
	if n == nil {
		return "<root>"
	}
	return fmt.Sprintf("%s %s", n.Kind, n.Key)
}

func nodeKey(kind Kind, key string) string {
	return fmt.Sprintf("%d:%s", kind, key)
}
