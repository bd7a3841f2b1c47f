package config

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/atomicstack/popup-tree/internal/app"
)

// Config captures runtime configuration for the application.
type Config struct {
	App      app.Config
	Logging  Logging
	Settings Settings
	Flags    map[string]string
	Args     []string
}

type Logging struct {
	FilePath string
	Trace    bool
}

const (
	envSocketPath = "POPUP_TREE_SOCKET"
	envSource     = "POPUP_TREE_SOURCE"
	envRoot       = "POPUP_TREE_ROOT"
	envWidth      = "POPUP_TREE_WIDTH"
	envHeight     = "POPUP_TREE_HEIGHT"
	envConfig     = "POPUP_TREE_CONFIG"
	envMulti      = "POPUP_TREE_MULTI"
	envFilter     = "POPUP_TREE_FILTER"
	envPoll       = "POPUP_TREE_POLL"
	envTrace      = "POPUP_TREE_TRACE"
	envLogFile    = "POPUP_TREE_LOG_FILE"

	defaultPoll = 1500 * time.Millisecond
)

// Load parses configuration from CLI arguments and environment variables.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:], os.Environ())
}

// LoadArgs allows tests to supply specific args/environment.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	fs := flag.NewFlagSet("popup-tree", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	socket := fs.String("socket", envOrDefault(env, envSocketPath, ""), "path to the tmux socket (overrides environment detection)")
	source := fs.String("source", envOrDefault(env, envSource, app.SourceTmux), "tree source: tmux or fs")
	root := fs.String("root", envOrDefault(env, envRoot, "."), "root directory for the fs source")
	width := fs.Int("width", envOrInt(env, envWidth, 0), "desired viewport width in cells (0 uses terminal width)")
	height := fs.Int("height", envOrInt(env, envHeight, 0), "desired viewport height in rows (0 uses terminal height)")
	settingsPath := fs.String("config", envOrDefault(env, envConfig, defaultSettingsPath(env)), "path to the tree settings file")
	multi := fs.Bool("multi", envOrBool(env, envMulti, true), "allow selecting several nodes")
	filter := fs.Bool("filter", envOrBool(env, envFilter, true), "enable the filter prompt")
	poll := fs.Duration("poll", envOrDuration(env, envPoll, defaultPoll), "tmux polling interval")
	trace := fs.Bool("trace", envOrBool(env, envTrace, false), "enable verbose JSON trace logging")
	logFile := fs.String("log-file", envOrDefault(env, envLogFile, ""), "path to the log file")
	fs.StringVar(logFile, "log", *logFile, "alias for -log-file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *width < 0 {
		return Config{}, fmt.Errorf("width must be >= 0 (got %d)", *width)
	}
	if *height < 0 {
		return Config{}, fmt.Errorf("height must be >= 0 (got %d)", *height)
	}

	settings, err := LoadSettings(*settingsPath)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		App: app.Config{
			SocketPath:   *socket,
			Source:       strings.ToLower(strings.TrimSpace(*source)),
			Root:         *root,
			Width:        *width,
			Height:       *height,
			MultiSelect:  *multi,
			EnableFilter: *filter,
			PollInterval: *poll,
			Tree:         settings.Tree.Options(),
		},
		Logging: Logging{
			FilePath: *logFile,
			Trace:    *trace,
		},
		Settings: settings,
		Flags: map[string]string{
			"socket":  *socket,
			"source":  *source,
			"root":    *root,
			"width":   strconv.Itoa(*width),
			"height":  strconv.Itoa(*height),
			"config":  *settingsPath,
			"multi":   strconv.FormatBool(*multi),
			"filter":  strconv.FormatBool(*filter),
			"poll":    poll.String(),
			"trace":   strconv.FormatBool(*trace),
			"logFile": *logFile,
		},
		Args: append([]string(nil), args...),
	}

	return cfg, nil
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}

func envOrInt(env map[string]string, key string, fallback int) int {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(env map[string]string, key string, fallback bool) bool {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDuration(env map[string]string, key string, fallback time.Duration) time.Duration {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Validate ensures required minimum configuration is present.
func Validate(cfg Config) error {
	switch cfg.App.Source {
	case app.SourceTmux:
		if cfg.App.PollInterval <= 0 {
			return fmt.Errorf("poll interval must be > 0 (got %s)", cfg.App.PollInterval)
		}
	case app.SourceFS:
		info, err := os.Stat(cfg.App.Root)
		if err != nil {
			return fmt.Errorf("root: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("root %s is not a directory", cfg.App.Root)
		}
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", cfg.App.Source, app.SourceTmux, app.SourceFS)
	}
	keys := cfg.App.Tree.Keys
	seen := map[string]string{}
	for name, key := range map[string]string{
		"invoke":           keys.Invoke,
		"toggle":           keys.Toggle,
		"actions":          keys.Actions,
		"collapse_all":     keys.CollapseAll,
		"toggle_selection": keys.ToggleSelection,
		"close":            keys.Close,
		"activate_filter":  keys.ActivateFilter,
	} {
		if key == "" {
			continue
		}
		if slices.Contains(app.ReservedKeys, key) {
			return fmt.Errorf("key %q for %s is reserved for navigation", key, name)
		}
		if other, ok := seen[key]; ok {
			a, b := other, name
			if b < a {
				a, b = b, a
			}
			return fmt.Errorf("key %q bound to both %s and %s", key, a, b)
		}
		seen[key] = name
	}
	return nil
}
