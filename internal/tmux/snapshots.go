package tmux

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	sessionFormat = "#{session_name}\t#{session_created}"
	windowFormat  = "#{window_id}\t#{session_name}\t#{window_index}\t#{window_active}\t#{window_activity}\t#{window_name}"
	paneFormat    = "#{pane_id}\t#{session_name}\t#{window_index}\t#{pane_index}\t#{pane_active}\t" +
		"#{?pane_active&&window_active&&session_attached,1,0}\t#{pane_width}\t#{pane_height}\t" +
		"#{pane_current_command}\t#{pane_current_path}\t#{pane_title}"
)

// FetchSnapshot lists every session, window and pane of the server.
func FetchSnapshot(socketPath string) (Snapshot, error) {
	client, err := newTmux(socketPath)
	if err != nil {
		return Snapshot{}, err
	}
	defer client.Close()

	sessionLines, err := client.ListSessionsFormat(sessionFormat)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list sessions: %w", err)
	}
	if len(sessionLines) == 0 {
		if fallback, err := fetchSessionLinesFallback(socketPath); err == nil {
			sessionLines = fallback
		}
	}
	windowLines, err := client.ListWindowsFormat("", "", windowFormat)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list windows: %w", err)
	}
	paneLines, err := client.ListPanesFormat("", "", paneFormat)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list panes: %w", err)
	}

	snap := assemble(parseSessions(sessionLines), parseWindows(windowLines), parsePanes(paneLines))
	snap.Current = currentSessionName(client)
	attached := realAttachedClients(client)
	for i := range snap.Sessions {
		s := &snap.Sessions[i]
		s.Clients = attached[s.Name]
		s.Attached = len(s.Clients) > 0
		s.Current = s.Name == snap.Current
	}
	return snap, nil
}

// assemble nests windows and panes under their sessions. Windows or panes
// whose parent is missing from the listing are dropped.
func assemble(sessions []Session, windows []Window, panes []Pane) Snapshot {
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].Index < windows[j].Index })
	sort.SliceStable(panes, func(i, j int) bool { return panes[i].Index < panes[j].Index })
	byTarget := make(map[string][]Pane)
	for _, p := range panes {
		key := fmt.Sprintf("%s:%d", p.Session, p.WindowIndex)
		byTarget[key] = append(byTarget[key], p)
	}
	bySession := make(map[string][]Window)
	for _, w := range windows {
		w.Panes = byTarget[w.Target]
		bySession[w.Session] = append(bySession[w.Session], w)
	}
	snap := Snapshot{Sessions: make([]Session, 0, len(sessions))}
	for _, s := range sessions {
		s.Windows = bySession[s.Name]
		snap.Sessions = append(snap.Sessions, s)
	}
	return snap
}

func splitFields(line string, n int) ([]string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, false
	}
	parts := strings.SplitN(line, "\t", n)
	if len(parts) < n {
		return nil, false
	}
	return parts, true
}

func parseUnix(s string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func parseSessions(lines []string) []Session {
	out := make([]Session, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		parts, ok := splitFields(line, 2)
		if !ok {
			continue
		}
		name := strings.TrimSpace(parts[0])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Session{Name: name, Created: parseUnix(parts[1])})
	}
	return out
}

func parseWindows(lines []string) []Window {
	out := make([]Window, 0, len(lines))
	for _, line := range lines {
		parts, ok := splitFields(line, 6)
		if !ok {
			continue
		}
		session := strings.TrimSpace(parts[1])
		index := atoi(parts[2])
		out = append(out, Window{
			ID:       strings.TrimSpace(parts[0]),
			Target:   fmt.Sprintf("%s:%d", session, index),
			Session:  session,
			Index:    index,
			Active:   strings.TrimSpace(parts[3]) == "1",
			Activity: parseUnix(parts[4]),
			Name:     parts[5],
		})
	}
	return out
}

func parsePanes(lines []string) []Pane {
	out := make([]Pane, 0, len(lines))
	for _, line := range lines {
		parts, ok := splitFields(line, 11)
		if !ok {
			continue
		}
		session := strings.TrimSpace(parts[1])
		windowIndex := atoi(parts[2])
		index := atoi(parts[3])
		out = append(out, Pane{
			ID:          strings.TrimSpace(parts[0]),
			Target:      fmt.Sprintf("%s:%d.%d", session, windowIndex, index),
			Session:     session,
			WindowIndex: windowIndex,
			Index:       index,
			Active:      strings.TrimSpace(parts[4]) == "1",
			Current:     strings.TrimSpace(parts[5]) == "1",
			Width:       atoi(parts[6]),
			Height:      atoi(parts[7]),
			Command:     strings.TrimSpace(parts[8]),
			Path:        strings.TrimSpace(parts[9]),
			Title:       parts[10],
		})
	}
	return out
}
