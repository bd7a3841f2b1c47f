package tmux

import (
	"fmt"
	"strings"
)

const previewMaxLines = 40

var (
	sessionPreviewFormat = "#{?window_active,*, } #{window_index}: #{window_name}"
	windowPreviewFormat  = "#{?pane_active,*, } #{pane_index}: #{pane_title} (#{pane_current_command})"
)

// Preview describes target: the windows of a session, the panes of a
// window, or the last lines of a pane's contents.
func Preview(socketPath, target string) ([]string, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	args := baseArgs(socketPath)
	placeholder := "(no windows)"
	keepEmpty := false
	switch {
	case t.Pane >= 0:
		args = append(args, "capture-pane", "-p", "-S", fmt.Sprintf("-%d", previewMaxLines), "-t", t.String())
		placeholder = "(pane is empty)"
		keepEmpty = true
	case t.Window >= 0:
		args = append(args, "list-panes", "-t", t.String(), "-F", windowPreviewFormat)
		placeholder = "(no panes)"
	default:
		args = append(args, "list-windows", "-t", t.String(), "-F", sessionPreviewFormat)
	}
	output, err := runExecCommand("tmux", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", t, err)
	}
	lines := splitPreviewLines(string(output), keepEmpty)
	if len(lines) == 0 {
		return []string{placeholder}, nil
	}
	if len(lines) > previewMaxLines {
		lines = lines[len(lines)-previewMaxLines:]
	}
	return lines, nil
}

func splitPreviewLines(text string, keepEmpty bool) []string {
	normalised := strings.ReplaceAll(text, "\r\n", "\n")
	normalised = strings.ReplaceAll(normalised, "\r", "\n")
	normalised = strings.TrimRight(normalised, "\n")
	if normalised == "" {
		return nil
	}
	raw := strings.Split(normalised, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" && !keepEmpty {
			continue
		}
		lines = append(lines, trimmed)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
