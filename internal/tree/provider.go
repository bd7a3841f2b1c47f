package tree

import "context"

// Provider supplies nodes and their display metadata. The zero value of T
// addresses the invisible root: Children(ctx, zero) returns the top-level
// nodes. Implementations must be safe for concurrent use.
type Provider[T comparable] interface {
	Children(ctx context.Context, parent T) ([]T, error)
	TreeItem(ctx context.Context, node T) (Item, error)
}

// ParentProvider is needed by Reveal and by filter exit focus restoration.
// ok is false for top-level nodes.
type ParentProvider[T comparable] interface {
	Parent(ctx context.Context, node T) (parent T, ok bool, err error)
}

// ItemResolver lazily enriches an item, typically with a tooltip or command.
type ItemResolver[T comparable] interface {
	ResolveItem(ctx context.Context, item Item, node T) (Item, error)
}

// ChangeNotifier publishes data changes. The returned function unsubscribes.
type ChangeNotifier[T comparable] interface {
	Subscribe(fn func(Change[T])) func()
}

// Change describes a provider change: either everything (All) or one node.
type Change[T comparable] struct {
	Node T
	All  bool
}

// CommandExecutor runs item commands.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd Command) error
}

// Documentation is one tooltip block.
type Documentation struct {
	Filetype string
	Content  string
}

// TooltipPresenter displays hover documentation.
type TooltipPresenter interface {
	Show(ctx context.Context, docs []Documentation) error
	Close()
}

// Picker lets the user choose one entry; it returns -1 on cancel.
type Picker interface {
	Pick(ctx context.Context, title string, items []string) (int, error)
}

// ActionFunc runs a named action on the node under the cursor. selection
// holds the current selection when more than one node is selected.
type ActionFunc[T comparable] func(ctx context.Context, node T, selection []T) error
