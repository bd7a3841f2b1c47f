package tree

import (
	"context"
	"sync"
)

type cacheEntry struct {
	item     Item
	resolved bool
}

// itemCache maps nodes to their resolved items. Insertion order is kept so
// id reconciliation is deterministic.
type itemCache[T comparable] struct {
	provider Provider[T]

	mu      sync.Mutex
	entries map[T]*cacheEntry
	order   []T
}

func newItemCache[T comparable](provider Provider[T]) *itemCache[T] {
	return &itemCache[T]{provider: provider, entries: map[T]*cacheEntry{}}
}

// resolve fetches the node's item and stores it. An entry found by node, or
// failing that by id, contributes its resolved flag and, when both states
// are non-leaf, its collapsible state.
func (c *itemCache[T]) resolve(ctx context.Context, node T) (Item, error) {
	item, err := c.provider.TreeItem(ctx, node)
	if err != nil {
		return Item{}, &ProviderError{Op: "tree item", Err: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.entries[node]
	if prev == nil && item.ID != "" {
		for _, n := range c.order {
			if e := c.entries[n]; e.item.ID == item.ID {
				prev = e
			}
		}
	}
	resolved := false
	if prev != nil {
		resolved = prev.resolved
		if prev.item.CollapsibleState != None && item.CollapsibleState != None {
			item.CollapsibleState = prev.item.CollapsibleState
		}
	}
	c.storeLocked(node, cacheEntry{item: item, resolved: resolved})
	return item, nil
}

// resolveDeep runs the provider's ItemResolver, if any, and marks the entry
// resolved. A cancelled ctx leaves the entry untouched.
func (c *itemCache[T]) resolveDeep(ctx context.Context, node T, item Item) (Item, error) {
	if r, ok := c.provider.(ItemResolver[T]); ok {
		enriched, err := r.ResolveItem(ctx, item, node)
		if ctx.Err() != nil {
			return Item{}, ErrResolutionCancelled
		}
		if err != nil {
			return Item{}, &ProviderError{Op: "resolve item", Err: err}
		}
		item = enriched
	}
	if ctx.Err() != nil {
		return Item{}, ErrResolutionCancelled
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return Item{}, ErrResolutionCancelled
	}
	if cur, ok := c.entries[node]; ok && cur.item.CollapsibleState != None && item.CollapsibleState != None {
		item.CollapsibleState = cur.item.CollapsibleState
	}
	c.storeLocked(node, cacheEntry{item: item, resolved: true})
	return item, nil
}

func (c *itemCache[T]) storeLocked(node T, e cacheEntry) {
	if _, ok := c.entries[node]; !ok {
		c.order = append(c.order, node)
	}
	c.entries[node] = &e
}

func (c *itemCache[T]) get(node T) (Item, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[node]
	if !ok {
		return Item{}, false, false
	}
	return e.item, e.resolved, true
}

func (c *itemCache[T]) has(node T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[node]
	return ok
}

// setState changes the collapsible state of a cached non-leaf item.
func (c *itemCache[T]) setState(node T, state CollapsibleState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[node]
	if !ok || e.item.CollapsibleState == None {
		return false
	}
	e.item.CollapsibleState = state
	return true
}

func (c *itemCache[T]) collapseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.item.CollapsibleState == Expanded {
			e.item.CollapsibleState = Collapsed
		}
	}
}

func (c *itemCache[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[T]*cacheEntry{}
	c.order = nil
}

func (c *itemCache[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
