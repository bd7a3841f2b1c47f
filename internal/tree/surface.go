package tree

import "context"

// OpenOptions is passed to the host when allocating a surface.
type OpenOptions struct {
	SignColumn bool
	FixedWidth bool
}

// Host allocates surfaces bound to a view identifier.
type Host interface {
	Open(ctx context.Context, viewID string, opts OpenOptions) (Surface, error)
}

// Surface is a line-addressed text region owned by the host. Line numbers
// are 0-based.
type Surface interface {
	ID() string
	// Batch applies every call made on the Batch as one visible update. fn
	// must not call back into the view.
	Batch(fn func(Batch)) error
	Lines() []string
	CursorLine() int
	// ErrWrite reports a single-line error message to the user.
	ErrWrite(msg string)
	Close() error
}

// Batch is the set of surface primitives usable inside Surface.Batch.
type Batch interface {
	SetModifiable(on bool)
	// SetLines replaces [start, end) with lines; end -1 means to the end.
	// Indexes are clamped.
	SetLines(start, end int, lines []string)
	// UpdateHighlights clears ns over [start, end) and applies hls.
	UpdateHighlights(ns string, hls []Highlight, start, end int)
	ClearNamespace(ns string, start, end int)
	PlaceSign(id, line int, name, group string)
	// UnplaceSign removes one sign, or every sign of group when id is 0.
	UnplaceSign(group string, id int)
	SetCursor(line int)
	Redraw()
}
