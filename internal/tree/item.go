package tree

// CollapsibleState describes whether a node can show children and whether it
// currently does.
type CollapsibleState int

const (
	// None marks a leaf.
	None CollapsibleState = iota
	Collapsed
	Expanded
)

func (s CollapsibleState) String() string {
	switch s {
	case Collapsed:
		return "collapsed"
	case Expanded:
		return "expanded"
	default:
		return "none"
	}
}

// Label is the display text of an item. Highlights are [start, end) byte
// offsets into Text.
type Label struct {
	Text       string
	Highlights [][2]int
}

// TextLabel returns a label without highlight spans.
func TextLabel(text string) Label {
	return Label{Text: text}
}

// Icon is drawn between the expand glyph and the label.
type Icon struct {
	Text  string
	Group string
}

const (
	MarkupPlain    = "plaintext"
	MarkupMarkdown = "markdown"
)

// Markup is tooltip content.
type Markup struct {
	Kind  string
	Value string
}

// Command is an opaque invocable handed to the CommandExecutor.
type Command struct {
	ID        string
	Title     string
	Arguments []string
}

// Item is the resolved display metadata for a node.
type Item struct {
	Label            Label
	CollapsibleState CollapsibleState
	Icon             *Icon
	Command          *Command
	Tooltip          *Markup
	Deprecated       bool
	ID               string
}

// RenderedLine is one entry of the projection.
type RenderedLine[T comparable] struct {
	Node  T
	Level int
	Text  string
}

// Highlight is a byte span on a single surface line.
type Highlight struct {
	Line     int
	ColStart int
	ColEnd   int
	Group    string
}

// Highlight groups and marker identifiers used on the surface.
const (
	Namespace = "tree"

	GroupOpenClose   = "TreeOpenClose"
	GroupSearch      = "Search"
	GroupDeprecated  = "TreeDeprecated"
	GroupCursor      = "Cursor"
	GroupTitle       = "TreeTitle"
	GroupDescription = "Comment"
	GroupMessage     = "MoreMsg"
	GroupWarning     = "WarningMsg"

	SignName   = "TreeSelected"
	SignGroup  = "PopupTree"
	signOffset = 3000
)
