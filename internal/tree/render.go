package tree

import (
	"context"
	"strings"
)

const indentUnit = "  "

type renderOptions struct {
	openedIcon string
	closedIcon string
	leafIndent bool
}

// renderLine draws one projection line for item at level and returns the
// highlights for it, all placed on line.
func renderLine(item Item, line, level int, opts renderOptions) (string, []Highlight) {
	var b strings.Builder
	var hls []Highlight
	b.WriteString(strings.Repeat(indentUnit, level))
	mark := func(text, group string) {
		if text == "" {
			return
		}
		start := b.Len()
		hls = append(hls, Highlight{Line: line, ColStart: start, ColEnd: start + len(text), Group: group})
	}
	switch item.CollapsibleState {
	case Expanded:
		mark(opts.openedIcon, GroupOpenClose)
		b.WriteString(opts.openedIcon + " ")
	case Collapsed:
		mark(opts.closedIcon, GroupOpenClose)
		b.WriteString(opts.closedIcon + " ")
	default:
		if opts.leafIndent {
			b.WriteString(indentUnit)
		}
	}
	if item.Icon != nil {
		mark(item.Icon.Text, item.Icon.Group)
		b.WriteString(item.Icon.Text + " ")
	}
	labelStart := b.Len()
	for _, span := range item.Label.Highlights {
		if span[1] <= span[0] {
			continue
		}
		hls = append(hls, Highlight{Line: line, ColStart: labelStart + span[0], ColEnd: labelStart + span[1], Group: GroupSearch})
	}
	if item.Deprecated {
		mark(item.Label.Text, GroupDeprecated)
	}
	b.WriteString(item.Label.Text)
	return b.String(), hls
}

// flattener turns a subtree into projection lines.
type flattener[T comparable] struct {
	provider Provider[T]
	cache    *itemCache[T]
}

type flatResult[T comparable] struct {
	lines []RenderedLine[T]
	hls   []Highlight
}

func (r *flatResult[T]) texts() []string {
	out := make([]string, len(r.lines))
	for i, l := range r.lines {
		out[i] = l.Text
	}
	return out
}

// shift moves every highlight by delta lines.
func (r *flatResult[T]) shift(delta int) {
	if delta == 0 {
		return
	}
	for i := range r.hls {
		r.hls[i].Line += delta
	}
}

// flatten renders node at level on line and, when expanded, its children
// below it. It returns the number of lines consumed.
func (f *flattener[T]) flatten(ctx context.Context, node T, level, line int, opts renderOptions, out *flatResult[T]) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	item, err := f.cache.resolve(ctx, node)
	if err != nil {
		return 0, err
	}
	text, hls := renderLine(item, line, level, opts)
	out.lines = append(out.lines, RenderedLine[T]{Node: node, Level: level, Text: text})
	out.hls = append(out.hls, hls...)
	takes := 1
	if item.CollapsibleState != Expanded {
		return takes, nil
	}
	children, err := f.provider.Children(ctx, node)
	if err != nil {
		return takes, &ProviderError{Op: "children", Err: err}
	}
	for _, child := range children {
		n, err := f.flatten(ctx, child, level+1, line+takes, opts, out)
		if err != nil {
			return takes, err
		}
		takes += n
	}
	return takes, nil
}

// flattenRoots renders every top-level node starting at line.
func (f *flattener[T]) flattenRoots(ctx context.Context, line int, opts renderOptions) (*flatResult[T], error) {
	var zero T
	roots, err := f.provider.Children(ctx, zero)
	if err != nil {
		return nil, &ProviderError{Op: "children", Err: err}
	}
	out := &flatResult[T]{}
	for _, root := range roots {
		n, err := f.flatten(ctx, root, 0, line, opts, out)
		if err != nil {
			return nil, err
		}
		line += n
	}
	return out, nil
}
