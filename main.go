package main

import (
	"fmt"
	"os"

	"github.com/atomicstack/popup-tree/internal/app"
	"github.com/atomicstack/popup-tree/internal/config"
	"github.com/atomicstack/popup-tree/internal/logging"
	"github.com/atomicstack/popup-tree/internal/logging/events"
	"golang.org/x/term"
)

func main() {
	runtimeCfg := config.MustLoad()
	if err := config.Validate(runtimeCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	logging.Configure(runtimeCfg.Logging.FilePath)
	logging.SetTraceEnabled(runtimeCfg.Logging.Trace)

	tty := collectTTYDetails()
	traceStartup(runtimeCfg, tty)
	if tty.Detected == nil {
		fmt.Fprintln(os.Stderr, "Error: popup-tree needs a terminal; run it inside tmux display-popup -E")
		os.Exit(1)
	}

	if err := app.Run(runtimeCfg.App); err != nil {
		logging.Error(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func traceStartup(cfg config.Config, tty ttyDetails) {
	events.App.Start(startupTracePayload(cfg, tty))
}

// startupTracePayload bundles runtime context for trace logging.
func startupTracePayload(cfg config.Config, tty ttyDetails) map[string]interface{} {
	flags := make(map[string]interface{}, len(cfg.Flags))
	for k, v := range cfg.Flags {
		flags[k] = v
	}
	flags["trace"] = cfg.Logging.Trace
	flags["logFile"] = cfg.Logging.FilePath
	payload := map[string]interface{}{
		"argv":   cfg.Args,
		"flags":  flags,
		"config": cfg,
		"source": cfg.App.Source,
	}
	if exe, err := os.Executable(); err == nil {
		payload["executable"] = exe
	} else {
		payload["executableError"] = err.Error()
	}
	if cwd, err := os.Getwd(); err == nil {
		payload["cwd"] = cwd
	} else {
		payload["cwdError"] = err.Error()
	}
	payload["tty"] = tty
	return payload
}

// ttyDetails records which standard descriptor, if any, is the popup's
// terminal.
type ttyDetails struct {
	Detected    *ttyDetected    `json:"detected,omitempty"`
	Descriptors []ttyDescriptor `json:"descriptors"`
}

type ttyDetected struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ttyDescriptor struct {
	Name       string `json:"name"`
	IsTerminal bool   `json:"is_terminal"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Error      string `json:"error,omitempty"`
}

var standardDescriptors = []struct {
	name string
	file *os.File
}{
	{"stdin", os.Stdin},
	{"stdout", os.Stdout},
	{"stderr", os.Stderr},
}

// collectTTYDetails checks the standard descriptors in order; the first
// terminal with a readable size is the one the tree is drawn on.
func collectTTYDetails() ttyDetails {
	details := ttyDetails{Descriptors: make([]ttyDescriptor, 0, len(standardDescriptors))}
	for _, d := range standardDescriptors {
		desc := describeDescriptor(d.name, int(d.file.Fd()))
		if details.Detected == nil && desc.IsTerminal && desc.Error == "" {
			details.Detected = &ttyDetected{Source: desc.Name, Width: desc.Width, Height: desc.Height}
		}
		details.Descriptors = append(details.Descriptors, desc)
	}
	return details
}

func describeDescriptor(name string, fd int) ttyDescriptor {
	desc := ttyDescriptor{Name: name}
	if fd < 0 || !term.IsTerminal(fd) {
		return desc
	}
	desc.IsTerminal = true
	width, height, err := term.GetSize(fd)
	if err != nil {
		desc.Error = err.Error()
		return desc
	}
	desc.Width, desc.Height = width, height
	return desc
}
