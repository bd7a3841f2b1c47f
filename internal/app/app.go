package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atomicstack/popup-tree/internal/backend"
	"github.com/atomicstack/popup-tree/internal/provider/fstree"
	"github.com/atomicstack/popup-tree/internal/provider/tmuxtree"
	"github.com/atomicstack/popup-tree/internal/surface"
	"github.com/atomicstack/popup-tree/internal/tmux"
	"github.com/atomicstack/popup-tree/internal/tree"
	"github.com/atomicstack/popup-tree/internal/ui"
	"github.com/atomicstack/popup-tree/internal/ui/command"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	SourceTmux = "tmux"
	SourceFS   = "fs"
)

// Config describes user-provided application options.
type Config struct {
	SocketPath   string
	Source       string
	Root         string
	Width        int
	Height       int
	MultiSelect  bool
	EnableFilter bool
	PollInterval time.Duration
	Tree         tree.Config
}

// ReservedKeys never reach the tree outside the filter prompt; the popup
// uses them for navigation and quitting.
var ReservedKeys = []string{"q", "esc", "ctrl+c", "up", "down", "j", "k", "pgup", "pgdown", "home", "end", "g", "G"}

var (
	switchTo        = tmux.SwitchTo
	currentClientID = tmux.CurrentClientID
)

// Run bootstraps and executes the Bubble Tea program.
func Run(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	switch cfg.Source {
	case SourceFS:
		return runFS(ctx, cfg)
	case SourceTmux, "":
		return runTmux(ctx, cfg)
	}
	return fmt.Errorf("unknown source %q", cfg.Source)
}

func runTmux(ctx context.Context, cfg Config) error {
	socketPath, err := tmux.ResolveSocketPath(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("resolve socket path: %w", err)
	}
	prov := tmuxtree.New(socketPath)
	watcher := backend.NewWatcher(cfg.PollInterval, backend.TmuxSnapshots(socketPath))
	defer watcher.Stop()
	go prov.Run(ctx, watcher.Events())

	registry := tmuxCommands(socketPath, currentClientID(socketPath))
	return runView(ctx, cfg, "tmux", filepath.Base(socketPath), prov, registry, prov.Actions())
}

// tmuxCommands binds the commands tmux tree items carry. Switching ends the
// popup.
func tmuxCommands(socketPath, clientID string) *command.Registry {
	registry := command.NewRegistry()
	registry.Register(tmuxtree.SwitchCommand, func(ctx context.Context, args []string) (command.Outcome, error) {
		if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
			return command.Outcome{}, errors.New("missing target")
		}
		if err := switchTo(socketPath, clientID, args[0]); err != nil {
			return command.Outcome{}, err
		}
		return command.Outcome{Quit: true}, nil
	})
	return registry
}

func runFS(ctx context.Context, cfg Config) error {
	prov, err := fstree.New(cfg.Root)
	if err != nil {
		return fmt.Errorf("open root: %w", err)
	}
	defer prov.Close()
	if err := prov.Start(ctx); err != nil {
		return err
	}
	return runView(ctx, cfg, "files", prov.Root(), prov, fsCommands(prov.Root()), nil)
}

// fsCommands binds fs.open, which reports the chosen path relative to root.
func fsCommands(root string) *command.Registry {
	registry := command.NewRegistry()
	registry.Register(fstree.OpenCommand, func(ctx context.Context, args []string) (command.Outcome, error) {
		if len(args) == 0 {
			return command.Outcome{}, errors.New("missing path")
		}
		path := args[0]
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
		return command.Outcome{Info: "open " + path}, nil
	})
	return registry
}

func runView[T comparable](ctx context.Context, cfg Config, id, description string, prov tree.Provider[T], registry *command.Registry, actions map[string]tree.ActionFunc[T]) error {
	host := surface.NewHost()
	bridge := ui.NewBridge(host)
	registry.OnResult(bridge.Report)

	treeCfg := cfg.Tree
	if treeCfg.Keys.Invoke == "" {
		treeCfg = tree.DefaultConfig()
	}
	view, err := tree.NewView(id, tree.Options[T]{
		Provider:      prov,
		Host:          host,
		Config:        treeCfg,
		CanSelectMany: cfg.MultiSelect,
		EnableFilter:  cfg.EnableFilter,
		Commands:      registry,
		Tooltips:      bridge,
		Picker:        bridge,
		Actions:       actions,
	})
	if err != nil {
		return err
	}
	defer view.Dispose()
	view.SetDescription(description)
	view.OnVisibilityChange(func(e tree.VisibilityEvent) { bridge.SetHidden(!e.Visible) })
	view.OnSelectionChange(func(e tree.SelectionEvent[T]) {
		if cfg.MultiSelect && len(e.Selection) > 1 {
			bridge.Report(command.Outcome{Info: fmt.Sprintf("%d selected", len(e.Selection))})
		}
	})

	model := ui.NewModel(view, bridge, ui.Options{
		Context: ctx,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Footer:  footer(treeCfg.Keys, cfg.EnableFilter, len(actions) > 0),
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithReportFocus())
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// footer lists the bindings worth discovering.
func footer(keys tree.Keys, filter, actions bool) string {
	hints := []string{keys.Invoke + " open", keys.Toggle + " toggle"}
	if filter {
		hints = append(hints, keys.ActivateFilter+" filter")
	}
	if actions {
		hints = append(hints, keys.Actions+" actions")
	}
	hints = append(hints, "q quit")
	return strings.Join(hints, " · ")
}
