package tree

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

// stubProvider serves string nodes; "" is the root.
type stubProvider struct {
	mu       sync.Mutex
	items    map[string]Item
	children map[string][]string
	err      error
}

func (p *stubProvider) Children(ctx context.Context, parent string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.children[parent], nil
}

func (p *stubProvider) TreeItem(ctx context.Context, node string) (Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[node]
	if !ok {
		return Item{}, errors.New("unknown node " + node)
	}
	return item, nil
}

var testOpts = renderOptions{openedIcon: "-", closedIcon: "+", leafIndent: true}

func TestRenderLineExpandedNode(t *testing.T) {
	text, hls := renderLine(Item{Label: TextLabel("A"), CollapsibleState: Expanded}, 4, 1, testOpts)
	if text != "  - A" {
		t.Fatalf("unexpected text %q", text)
	}
	want := []Highlight{{Line: 4, ColStart: 2, ColEnd: 3, Group: GroupOpenClose}}
	if !reflect.DeepEqual(hls, want) {
		t.Fatalf("unexpected highlights %+v", hls)
	}
}

func TestRenderLineLeafIndent(t *testing.T) {
	item := Item{Label: TextLabel("B")}
	if text, _ := renderLine(item, 0, 1, testOpts); text != "    B" {
		t.Fatalf("expected leaf indent, got %q", text)
	}
	noIndent := testOpts
	noIndent.leafIndent = false
	if text, _ := renderLine(item, 0, 1, noIndent); text != "  B" {
		t.Fatalf("expected no leaf indent, got %q", text)
	}
}

func TestRenderLineIconLabelAndDeprecated(t *testing.T) {
	item := Item{
		Label:            Label{Text: "abc", Highlights: [][2]int{{0, 2}}},
		CollapsibleState: Collapsed,
		Icon:             &Icon{Text: "*", Group: "Icon"},
		Deprecated:       true,
	}
	text, hls := renderLine(item, 2, 0, testOpts)
	if text != "+ * abc" {
		t.Fatalf("unexpected text %q", text)
	}
	want := []Highlight{
		{Line: 2, ColStart: 0, ColEnd: 1, Group: GroupOpenClose},
		{Line: 2, ColStart: 2, ColEnd: 3, Group: "Icon"},
		{Line: 2, ColStart: 4, ColEnd: 6, Group: GroupSearch},
		{Line: 2, ColStart: 4, ColEnd: 7, Group: GroupDeprecated},
	}
	if !reflect.DeepEqual(hls, want) {
		t.Fatalf("unexpected highlights\n got %+v\nwant %+v", hls, want)
	}
}

func TestFlattenExpandedSubtree(t *testing.T) {
	p := &stubProvider{
		items: map[string]Item{
			"a": {Label: TextLabel("A"), CollapsibleState: Expanded},
			"b": {Label: TextLabel("B"), CollapsibleState: Collapsed},
			"c": {Label: TextLabel("C")},
			"d": {Label: TextLabel("D")},
		},
		children: map[string][]string{"": {"a"}, "a": {"b", "c"}, "b": {"d"}},
	}
	f := &flattener[string]{provider: p, cache: newItemCache[string](p)}
	out, err := f.flattenRoots(context.Background(), 3, testOpts)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if got := out.texts(); !reflect.DeepEqual(got, []string{"- A", "  + B", "      C"}) {
		t.Fatalf("unexpected lines %q", got)
	}
	levels := []int{}
	for _, l := range out.lines {
		levels = append(levels, l.Level)
	}
	if !reflect.DeepEqual(levels, []int{0, 1, 1}) {
		t.Fatalf("unexpected levels %v", levels)
	}
	if out.hls[0].Line != 3 || out.hls[1].Line != 4 {
		t.Fatalf("highlights not placed from start line: %+v", out.hls)
	}
}

func TestFlattenWrapsChildrenError(t *testing.T) {
	p := &stubProvider{err: errors.New("boom")}
	f := &flattener[string]{provider: p, cache: newItemCache[string](p)}
	_, err := f.flattenRoots(context.Background(), 0, testOpts)
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Op != "children" {
		t.Fatalf("expected children provider error, got %v", err)
	}
}

func TestSingleLine(t *testing.T) {
	if got := singleLine("a\r\nb\nc"); got != "a b c" {
		t.Fatalf("unexpected %q", got)
	}
}
