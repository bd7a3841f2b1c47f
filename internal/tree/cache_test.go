package tree

import (
	"context"
	"errors"
	"testing"
)

type resolvingProvider struct {
	*stubProvider
	resolve func(ctx context.Context, item Item, node string) (Item, error)
}

func (p *resolvingProvider) ResolveItem(ctx context.Context, item Item, node string) (Item, error) {
	return p.resolve(ctx, item, node)
}

func TestCachePreservesExpandedState(t *testing.T) {
	p := &stubProvider{items: map[string]Item{"a": {Label: TextLabel("A"), CollapsibleState: Collapsed}}}
	c := newItemCache[string](p)
	ctx := context.Background()
	if _, err := c.resolve(ctx, "a"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c.setState("a", Expanded)
	item, err := c.resolve(ctx, "a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if item.CollapsibleState != Expanded {
		t.Fatalf("expected expanded state to survive refresh, got %v", item.CollapsibleState)
	}

	p.items["a"] = Item{Label: TextLabel("A")}
	item, _ = c.resolve(ctx, "a")
	if item.CollapsibleState != None {
		t.Fatalf("expected leaf report to win, got %v", item.CollapsibleState)
	}
}

func TestCacheReconcilesByIDLastMatchWins(t *testing.T) {
	p := &stubProvider{items: map[string]Item{
		"a": {Label: TextLabel("A"), CollapsibleState: Collapsed, ID: "x"},
		"b": {Label: TextLabel("B"), CollapsibleState: Collapsed, ID: "x"},
		"c": {Label: TextLabel("C"), CollapsibleState: Collapsed, ID: "x"},
	}}
	c := newItemCache[string](p)
	ctx := context.Background()
	c.resolve(ctx, "a")
	c.setState("a", Expanded)
	item, _ := c.resolve(ctx, "b")
	if item.CollapsibleState != Expanded {
		t.Fatalf("expected b to inherit a's state, got %v", item.CollapsibleState)
	}
	c.setState("b", Collapsed)
	item, _ = c.resolve(ctx, "c")
	if item.CollapsibleState != Collapsed {
		t.Fatalf("expected last inserted match to win, got %v", item.CollapsibleState)
	}
}

func TestCacheResolveDeepMarksResolved(t *testing.T) {
	p := &resolvingProvider{
		stubProvider: &stubProvider{items: map[string]Item{"a": {Label: TextLabel("A")}}},
		resolve: func(ctx context.Context, item Item, node string) (Item, error) {
			item.Tooltip = &Markup{Kind: MarkupPlain, Value: "tip"}
			return item, nil
		},
	}
	c := newItemCache[string](p)
	ctx := context.Background()
	item, _ := c.resolve(ctx, "a")
	item, err := c.resolveDeep(ctx, "a", item)
	if err != nil {
		t.Fatalf("resolveDeep: %v", err)
	}
	if item.Tooltip == nil || item.Tooltip.Value != "tip" {
		t.Fatalf("expected tooltip, got %+v", item.Tooltip)
	}
	if _, resolved, _ := c.get("a"); !resolved {
		t.Fatalf("expected entry to be resolved")
	}
	// A later refresh keeps the resolved flag.
	c.resolve(ctx, "a")
	if _, resolved, _ := c.get("a"); !resolved {
		t.Fatalf("expected refresh to keep resolved flag")
	}
}

func TestCacheResolveDeepCancelled(t *testing.T) {
	p := &resolvingProvider{
		stubProvider: &stubProvider{items: map[string]Item{"a": {Label: TextLabel("A")}}},
		resolve: func(ctx context.Context, item Item, node string) (Item, error) {
			<-ctx.Done()
			return item, ctx.Err()
		},
	}
	c := newItemCache[string](p)
	item, _ := c.resolve(context.Background(), "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.resolveDeep(ctx, "a", item); !errors.Is(err, ErrResolutionCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if _, resolved, _ := c.get("a"); resolved {
		t.Fatalf("cancelled resolution must not mark the entry resolved")
	}
}

func TestCacheCollapseAllAndClear(t *testing.T) {
	p := &stubProvider{items: map[string]Item{
		"a": {Label: TextLabel("A"), CollapsibleState: Expanded},
		"b": {Label: TextLabel("B")},
	}}
	c := newItemCache[string](p)
	ctx := context.Background()
	c.resolve(ctx, "a")
	c.resolve(ctx, "b")
	if c.setState("b", Expanded) {
		t.Fatalf("leaf state must not change")
	}
	c.collapseAll()
	if item, _, _ := c.get("a"); item.CollapsibleState != Collapsed {
		t.Fatalf("expected collapsed, got %v", item.CollapsibleState)
	}
	c.clear()
	if c.len() != 0 || c.has("a") {
		t.Fatalf("expected empty cache")
	}
}

// lateCancelCtx reports cancellation only after its first n Err calls.
type lateCancelCtx struct {
	context.Context
	n     int
	calls int
}

func (c *lateCancelCtx) Err() error {
	c.calls++
	if c.calls > c.n {
		return context.Canceled
	}
	return nil
}

func TestCacheResolveDeepCancelledBeforeStore(t *testing.T) {
	p := &stubProvider{items: map[string]Item{"a": {Label: TextLabel("A")}}}
	c := newItemCache[string](p)
	item, err := c.resolve(context.Background(), "a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ctx := &lateCancelCtx{Context: context.Background(), n: 1}
	if _, err := c.resolveDeep(ctx, "a", item); !errors.Is(err, ErrResolutionCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if _, resolved, _ := c.get("a"); resolved {
		t.Fatalf("entry marked resolved after cancellation")
	}
}
