package ui

import (
	"sort"
	"strings"

	"github.com/atomicstack/popup-tree/internal/surface"
	"github.com/atomicstack/popup-tree/internal/tree"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	maxTooltipLines = 12
	ellipsis        = "…"
)

// View renders the surface, any tooltip or picker, and the status line.
func (m *Model) View() string {
	buf := m.bridge.Buffer()
	if buf == nil {
		return styles.Footer.Render("loading…")
	}
	var sections []string
	if picker, ok := m.bridge.pickerView(); ok {
		sections = append(sections, m.renderPicker(picker))
	} else {
		tooltip := m.renderTooltip(m.bridge.Tooltip())
		rows := m.bodyRows()
		if rows > 0 && tooltip != "" {
			rows -= lipgloss.Height(tooltip)
			if rows < 1 {
				rows = 1
			}
		}
		sections = append(sections, m.renderBody(buf, rows))
		if tooltip != "" {
			sections = append(sections, tooltip)
		}
	}
	sections = append(sections, m.renderStatus(buf))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderBody(buf *surface.Buffer, rows int) string {
	lines := buf.Lines()
	cursor := buf.CursorLine()
	rendered := make([]string, len(lines))
	for i, text := range lines {
		rendered[i] = m.renderLine(buf, i, text, i == cursor)
	}
	if rows <= 0 {
		return strings.Join(rendered, "\n")
	}
	c := m.cursor
	c.SetTotal(len(lines))
	c.Line = cursor
	c.EnsureVisible(rows)
	width := m.width
	if width <= 0 {
		for _, line := range rendered {
			width = max(width, lipgloss.Width(line))
		}
	}
	vp := viewport.New(width, rows)
	vp.SetContent(strings.Join(rendered, "\n"))
	vp.SetYOffset(c.Offset)
	return vp.View()
}

func (m *Model) renderLine(buf *surface.Buffer, line int, text string, selected bool) string {
	base := *styles.Line
	if selected {
		base = styles.CursorLine.Inherit(base)
	}
	sign := base.Render("  ")
	if buf.HasSign(line, tree.SignGroup) {
		sign = styles.Sign.Inherit(base).Render("* ")
	}
	out := sign + styleSpans(text, buf.Highlights(line), base)
	if m.width > 0 {
		out = ansi.Truncate(out, m.width, ellipsis)
	}
	return out
}

// styleSpans renders text with each highlight span in its group style and
// the rest in base. Overlapping spans are clipped to the earlier one.
func styleSpans(text string, spans []surface.Span, base lipgloss.Style) string {
	if len(spans) == 0 {
		return base.Render(text)
	}
	sorted := append([]surface.Span(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	var b strings.Builder
	pos := 0
	for _, span := range sorted {
		start, end := span.Start, span.End
		if start < pos {
			start = pos
		}
		if end > len(text) {
			end = len(text)
		}
		if start >= end {
			continue
		}
		if start > pos {
			b.WriteString(base.Render(text[pos:start]))
		}
		style := base
		if group := styles.Group(span.Group); group != nil {
			style = group.Inherit(base)
		}
		b.WriteString(style.Render(text[start:end]))
		pos = end
	}
	if pos < len(text) {
		b.WriteString(base.Render(text[pos:]))
	}
	return b.String()
}

func (m *Model) renderTooltip(docs []tree.Documentation) string {
	if len(docs) == 0 {
		return ""
	}
	var lines []string
	for _, doc := range docs {
		lines = append(lines, tooltipLines(doc)...)
	}
	if len(lines) == 0 {
		return ""
	}
	if len(lines) > maxTooltipLines {
		lines = append(lines[:maxTooltipLines-1], ellipsis)
	}
	if m.width > 4 {
		for i, line := range lines {
			lines[i] = ansi.Truncate(line, m.width-4, ellipsis)
		}
	}
	return styles.TooltipBorder.Render(styles.TooltipBody.Render(strings.Join(lines, "\n")))
}

// tooltipLines flattens a document for the terminal. Markdown loses its
// code fences and bold markers.
func tooltipLines(doc tree.Documentation) []string {
	content := strings.TrimRight(doc.Content, "\n")
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if doc.Filetype != "markdown" {
		return lines
	}
	out := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, strings.ReplaceAll(line, "**", ""))
	}
	return out
}

func (m *Model) renderPicker(p pickRequest) string {
	rows := m.bodyRows()
	if rows > 1 {
		rows--
	}
	c := p.cursor
	c.EnsureVisible(rows)
	lines := []string{styles.PickerTitle.Render(p.title)}
	end := len(p.items)
	if rows > 0 && c.Offset+rows < end {
		end = c.Offset + rows
	}
	for i := c.Offset; i < end; i++ {
		style := styles.PickerItem
		prefix := "  "
		if i == c.Line {
			style = styles.PickerSelected
			prefix = "> "
		}
		line := style.Render(prefix + p.items[i])
		if m.width > 0 {
			line = ansi.Truncate(line, m.width, ellipsis)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatus(buf *surface.Buffer) string {
	if m.errMsg != "" {
		return styles.Error.Render(m.errMsg)
	}
	if errs := buf.Errors(); len(errs) > m.errSeen {
		return styles.Error.Render(errs[len(errs)-1])
	}
	if m.infoMsg != "" {
		return styles.Info.Render(m.infoMsg)
	}
	return styles.Footer.Render(m.footer)
}

// clearStatus drops the reported error and info once the user acts again.
func (m *Model) clearStatus() {
	m.errMsg = ""
	m.infoMsg = ""
	if buf := m.bridge.Buffer(); buf != nil {
		m.errSeen = len(buf.Errors())
	}
}
