package events

import "github.com/atomicstack/popup-tree/internal/logging"

type ProviderTracer struct{}

type TmuxTracer struct{}

var (
	Provider = ProviderTracer{}
	Tmux     = TmuxTracer{}
)

func (ProviderTracer) Change(view string, all bool) {
	logging.Trace("provider.change", map[string]interface{}{"view": view, "all": all})
}

func (ProviderTracer) Poll(source string, changed bool, err error) {
	payload := map[string]interface{}{"source": source, "changed": changed}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("provider.poll", payload)
}

func (ProviderTracer) Watch(path string, watching bool) {
	logging.Trace("provider.watch", map[string]interface{}{"path": path, "watching": watching})
}

func (TmuxTracer) Snapshot(sessions, windows, panes int) {
	logging.Trace("tmux.snapshot", map[string]interface{}{
		"sessions": sessions,
		"windows":  windows,
		"panes":    panes,
	})
}

func (TmuxTracer) Switch(client, target string) {
	logging.Trace("tmux.switch", map[string]interface{}{"client": client, "target": target})
}
