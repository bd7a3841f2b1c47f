package theme

import (
	"github.com/atomicstack/popup-tree/internal/tree"
	"github.com/charmbracelet/lipgloss"
)

// Styles describes reusable Lip Gloss styles shared across the UI.
type Styles struct {
	Line           *lipgloss.Style
	CursorLine     *lipgloss.Style
	Sign           *lipgloss.Style
	Error          *lipgloss.Style
	Info           *lipgloss.Style
	Footer         *lipgloss.Style
	TooltipBorder  *lipgloss.Style
	TooltipBody    *lipgloss.Style
	PickerTitle    *lipgloss.Style
	PickerItem     *lipgloss.Style
	PickerSelected *lipgloss.Style

	// Groups styles surface highlight groups by name.
	Groups map[string]*lipgloss.Style
}

var defaultStyles = Styles{
	Line: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	CursorLine: ptr(
		lipgloss.NewStyle().Background(lipgloss.Color("238")),
	),
	Sign: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
	),
	Error: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	),
	Info: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	Footer: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	TooltipBorder: ptr(
		lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
	),
	TooltipBody: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	),
	PickerTitle: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),
	),
	PickerItem: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")),
	),
	PickerSelected: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Bold(true),
	),
	Groups: map[string]*lipgloss.Style{
		tree.GroupOpenClose:   ptr(lipgloss.NewStyle().Foreground(lipgloss.Color("33"))),
		tree.GroupSearch:      ptr(lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)),
		tree.GroupDeprecated:  ptr(lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("243"))),
		tree.GroupCursor:      ptr(lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("33"))),
		tree.GroupTitle:       ptr(lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)),
		tree.GroupDescription: ptr(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)),
		tree.GroupMessage:     ptr(lipgloss.NewStyle().Foreground(lipgloss.Color("34"))),
		tree.GroupWarning:     ptr(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)),
		"Special":             ptr(lipgloss.NewStyle().Foreground(lipgloss.Color("170"))),
	},
}

// Default exposes the standard style set used across the application.
func Default() *Styles {
	return &defaultStyles
}

// Group returns the style for a highlight group, or nil when the group is
// not themed.
func (s *Styles) Group(name string) *lipgloss.Style {
	if s == nil {
		return nil
	}
	return s.Groups[name]
}

func ptr(style lipgloss.Style) *lipgloss.Style {
	return &style
}
