package tmux

import (
	"fmt"
	"strconv"
	"strings"

	gotmux "github.com/atomicstack/gotmuxcc/gotmuxcc"
	"github.com/atomicstack/popup-tree/internal/logging/events"
)

// Target is a parsed session, session:window or session:window.pane
// address. Window and Pane are -1 when absent.
type Target struct {
	Session string
	Window  int
	Pane    int
}

func ParseTarget(target string) (Target, error) {
	raw := strings.TrimSpace(target)
	t := Target{Window: -1, Pane: -1}
	session, rest, hasWindow := strings.Cut(raw, ":")
	t.Session = session
	if t.Session == "" {
		return Target{}, fmt.Errorf("invalid target %q", target)
	}
	if !hasWindow {
		return t, nil
	}
	window, pane, hasPane := strings.Cut(rest, ".")
	idx, err := strconv.Atoi(window)
	if err != nil || idx < 0 {
		return Target{}, fmt.Errorf("invalid window in target %q", target)
	}
	t.Window = idx
	if !hasPane {
		return t, nil
	}
	if t.Pane, err = strconv.Atoi(pane); err != nil || t.Pane < 0 {
		return Target{}, fmt.Errorf("invalid pane in target %q", target)
	}
	return t, nil
}

func (t Target) WindowTarget() string {
	return fmt.Sprintf("%s:%d", t.Session, t.Window)
}

func (t Target) String() string {
	switch {
	case t.Pane >= 0:
		return fmt.Sprintf("%s:%d.%d", t.Session, t.Window, t.Pane)
	case t.Window >= 0:
		return t.WindowTarget()
	default:
		return t.Session
	}
}

// SwitchTo points clientID at target's session and then selects its
// window and pane when given.
func SwitchTo(socketPath, clientID, target string) error {
	t, err := ParseTarget(target)
	if err != nil {
		return err
	}
	client, err := newTmux(socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	events.Tmux.Switch(clientID, t.String())

	opts := &gotmux.SwitchClientOptions{TargetSession: t.Session}
	if strings.TrimSpace(clientID) != "" {
		opts.TargetClient = clientID
	}
	if err := client.SwitchClient(opts); err != nil {
		return fmt.Errorf("switch client to %s: %w", t.Session, err)
	}
	if t.Window < 0 {
		return nil
	}
	if err := client.SelectWindow(t.WindowTarget()); err != nil {
		return fmt.Errorf("select window %s: %w", t.WindowTarget(), err)
	}
	if t.Pane < 0 {
		return nil
	}
	if _, err := client.Command("select-pane", "-t", t.String()); err != nil {
		return fmt.Errorf("select pane %s: %w", t, err)
	}
	return nil
}

// Kill removes the session, window or pane named by each target.
func Kill(socketPath string, targets ...string) error {
	args := baseArgs(socketPath)
	for _, target := range targets {
		t, err := ParseTarget(target)
		if err != nil {
			return err
		}
		verb := "kill-session"
		switch {
		case t.Pane >= 0:
			verb = "kill-pane"
		case t.Window >= 0:
			verb = "kill-window"
		}
		cmd := runExecCommand("tmux", append(args, verb, "-t", t.String())...)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s %s: %w", verb, t, err)
		}
	}
	return nil
}
