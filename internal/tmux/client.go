package tmux

import (
	"os"
	"strings"
)

// CurrentClientID detects the client that launched the popup so switches
// target the visible tmux client instead of the control-mode connection.
func CurrentClientID(socketPath string) string {
	target := strings.TrimSpace(os.Getenv("TMUX_PANE"))
	if target == "" {
		return ""
	}
	client, err := newTmux(socketPath)
	if err != nil {
		return ""
	}
	defer client.Close()
	name, err := client.DisplayMessage(target, "#{client_name}")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}
