package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gotmux "github.com/atomicstack/gotmuxcc/gotmuxcc"
)

var ErrPaneUnavailable = errors.New("tmux pane unavailable")

// Server is a throwaway tmux server the tree tests populate with sessions
// and windows of their own.
type Server struct {
	Socket string
	LogDir string

	t *testing.T
}

// RequireTmux skips the calling test when tmux is not present on PATH.
func RequireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("skipping: tmux binary not available")
	}
}

// StartServer boots a tmux server on a private socket. The server is killed
// and its logs checked for crashes when the test ends.
func StartServer(t *testing.T) *Server {
	t.Helper()
	RequireTmux(t)
	dir, err := os.MkdirTemp("/tmp", "popup-tree-*")
	if err != nil {
		t.Fatalf("failed to create tmux temp dir: %v", err)
	}
	s := &Server{Socket: filepath.Join(dir, "tree.sock"), LogDir: dir, t: t}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	// tmux -vv writes its server log into the working directory.
	boot := s.Command("-f", "/dev/null", "-vv", "new-session", "-d", "-s", "popup-tree-test", "sleep", "600")
	boot.Dir = dir
	if err := boot.Run(); err != nil {
		t.Skipf("skipping: failed to start tmux server: %v", err)
	}
	t.Cleanup(func() {
		s.stop()
		s.assertNoCrash()
	})
	return s
}

// Command builds a tmux invocation against the server, isolated from any
// tmux session the tests themselves run in.
func (s *Server) Command(args ...string) *exec.Cmd {
	cmd := exec.Command("tmux", append([]string{"-S", s.Socket}, args...)...)
	env := make([]string, 0, len(os.Environ())+2)
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, "TMUX=") {
			env = append(env, entry)
		}
	}
	cmd.Env = append(env, "TMUX=", "TMUX_TMPDIR="+filepath.Dir(s.Socket))
	return cmd
}

// Run executes a tmux command and fails the test on error.
func (s *Server) Run(args ...string) {
	s.t.Helper()
	if out, err := s.Command(args...).CombinedOutput(); err != nil {
		s.t.Fatalf("tmux %s: %v\n%s", strings.Join(args, " "), err, out)
	}
}

// NewSession creates a detached session with one window per name. The
// first window takes the first name.
func (s *Server) NewSession(name string, windows ...string) {
	s.t.Helper()
	args := []string{"new-session", "-d", "-s", name}
	if len(windows) > 0 {
		args = append(args, "-n", windows[0])
	}
	s.Run(args...)
	for _, w := range windows[min(1, len(windows)):] {
		s.Run("new-window", "-d", "-t", name, "-n", w)
	}
}

// WaitForWindows polls until session reports want windows.
func (s *Server) WaitForWindows(session string, want int) {
	s.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		out, err := s.Command("display-message", "-p", "-t", session, "#{session_windows}").Output()
		if err == nil && strings.TrimSpace(string(out)) == fmt.Sprint(want) {
			return
		}
		if time.Now().After(deadline) {
			s.t.Fatalf("session %s never reached %d windows (last %q, %v)", session, want, strings.TrimSpace(string(out)), err)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// Capture returns the rendered contents of a pane.
func (s *Server) Capture(target string) (string, error) {
	args := []string{"capture-pane", "-e", "-p"}
	if target != "" {
		args = append(args, "-t", target)
	}
	output, err := s.Command(args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", ErrPaneUnavailable
		}
		return "", fmt.Errorf("capture-pane failed: %w", err)
	}
	return string(output), nil
}

func (s *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := gotmux.NewTmuxWithOptions(s.Socket, gotmux.WithContext(ctx))
	if err == nil {
		defer client.Close()
		err = client.KillServer()
	}
	if err != nil {
		s.t.Logf("control-mode kill of %s failed: %v; using kill-server", s.Socket, err)
		_ = s.Command("kill-server").Run()
	}
}

func (s *Server) assertNoCrash() {
	files, err := filepath.Glob(filepath.Join(s.LogDir, "tmux-server-*.log"))
	if err != nil {
		s.t.Fatalf("failed to glob tmux logs: %v", err)
	}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			s.t.Fatalf("failed to read tmux server log %s: %v", path, err)
		}
		if bytes.Contains(content, []byte("server exited unexpectedly")) {
			s.t.Fatalf("tmux server reported unexpected exit; see %s", path)
		}
	}
}
