package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atomicstack/popup-tree/internal/tree"
	"gopkg.in/yaml.v3"
)

// Settings is the on-disk settings file.
type Settings struct {
	Tree TreeSettings `yaml:"tree"`
}

// TreeSettings overrides the tree view's glyphs and key bindings. Unset
// fields keep their defaults.
type TreeSettings struct {
	OpenedIcon string      `yaml:"opened_icon"`
	ClosedIcon string      `yaml:"closed_icon"`
	LeafIndent *bool       `yaml:"leaf_indent"`
	FixedWidth *bool       `yaml:"fixed_width"`
	Keys       KeySettings `yaml:"keys"`
}

type KeySettings struct {
	Invoke          string `yaml:"invoke"`
	Toggle          string `yaml:"toggle"`
	Actions         string `yaml:"actions"`
	CollapseAll     string `yaml:"collapse_all"`
	ToggleSelection string `yaml:"toggle_selection"`
	Close           string `yaml:"close"`
	ActivateFilter  string `yaml:"activate_filter"`
	SelectNext      string `yaml:"select_next"`
	SelectPrevious  string `yaml:"select_previous"`
}

// Options overlays the settings on tree.DefaultConfig.
func (t TreeSettings) Options() tree.Config {
	cfg := tree.DefaultConfig()
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.OpenedIcon, t.OpenedIcon)
	override(&cfg.ClosedIcon, t.ClosedIcon)
	if t.LeafIndent != nil {
		cfg.LeafIndent = *t.LeafIndent
	}
	if t.FixedWidth != nil {
		cfg.FixedWidth = *t.FixedWidth
	}
	override(&cfg.Keys.Invoke, t.Keys.Invoke)
	override(&cfg.Keys.Toggle, t.Keys.Toggle)
	override(&cfg.Keys.Actions, t.Keys.Actions)
	override(&cfg.Keys.CollapseAll, t.Keys.CollapseAll)
	override(&cfg.Keys.ToggleSelection, t.Keys.ToggleSelection)
	override(&cfg.Keys.Close, t.Keys.Close)
	override(&cfg.Keys.ActivateFilter, t.Keys.ActivateFilter)
	override(&cfg.Keys.SelectNext, t.Keys.SelectNext)
	override(&cfg.Keys.SelectPrevious, t.Keys.SelectPrevious)
	return cfg
}

// LoadSettings reads path. A missing file or empty path yields the zero
// Settings.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// defaultSettingsPath follows the XDG base directory layout.
func defaultSettingsPath(env map[string]string) string {
	if dir := env["XDG_CONFIG_HOME"]; dir != "" {
		return filepath.Join(dir, "popup-tree", "config.yaml")
	}
	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "popup-tree", "config.yaml")
	}
	return ""
}
