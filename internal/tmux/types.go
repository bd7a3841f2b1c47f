package tmux

import (
	"os/exec"
	"time"

	gotmux "github.com/atomicstack/gotmuxcc/gotmuxcc"
)

// Snapshot is one listing of a server's sessions with their windows and
// panes nested in index order.
type Snapshot struct {
	Sessions []Session
	Current  string
}

type Session struct {
	Name     string
	Attached bool
	Clients  []string
	Current  bool
	Created  time.Time
	Windows  []Window
}

type Window struct {
	ID       string
	Target   string
	Session  string
	Index    int
	Name     string
	Active   bool
	Activity time.Time
	Panes    []Pane
}

type Pane struct {
	ID          string
	Target      string
	Session     string
	WindowIndex int
	Index       int
	Title       string
	Command     string
	Path        string
	Width       int
	Height      int
	Active      bool
	Current     bool
}

var (
	newTmux = func(socketPath string) (tmuxClient, error) {
		if socketPath != "" {
			return gotmux.NewTmux(socketPath)
		}
		return gotmux.DefaultTmux()
	}

	runExecCommand = func(name string, args ...string) commander {
		return realCommander{cmd: exec.Command(name, args...)}
	}
)

type tmuxClient interface {
	ListClients() ([]*gotmux.Client, error)
	ListSessionsFormat(format string) ([]string, error)
	ListWindowsFormat(target, filter, format string) ([]string, error)
	ListPanesFormat(target, filter, format string) ([]string, error)
	DisplayMessage(target, format string) (string, error)
	SwitchClient(*gotmux.SwitchClientOptions) error
	SelectWindow(target string) error
	Command(parts ...string) (string, error)
	Close() error
}

type commander interface {
	Run() error
	Output() ([]byte, error)
}

type realCommander struct {
	cmd *exec.Cmd
}

func (r realCommander) Run() error {
	return r.cmd.Run()
}

func (r realCommander) Output() ([]byte, error) {
	return r.cmd.Output()
}
