package events

import "github.com/atomicstack/popup-tree/internal/logging"

type TreeTracer struct{}

type SelectionTracer struct{}

var (
	Tree      = TreeTracer{}
	Selection = SelectionTracer{}
)

func (TreeTracer) Show(view, surface string) {
	logging.Trace("tree.show", map[string]interface{}{"view": view, "surface": surface})
}

func (TreeTracer) Hide(view string) {
	logging.Trace("tree.hide", map[string]interface{}{"view": view})
}

func (TreeTracer) Render(view string, lines int) {
	logging.Trace("tree.render", map[string]interface{}{"view": view, "lines": lines})
}

func (TreeTracer) RenderFailed(view string, err error, attempt int) {
	payload := map[string]interface{}{"view": view, "attempt": attempt}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("tree.render.failed", payload)
}

func (TreeTracer) Retry(view string, attempt int) {
	logging.Trace("tree.render.retry", map[string]interface{}{"view": view, "attempt": attempt})
}

func (TreeTracer) Splice(view string, start, removed, inserted int) {
	logging.Trace("tree.splice", map[string]interface{}{
		"view":     view,
		"start":    start,
		"removed":  removed,
		"inserted": inserted,
	})
}

func (TreeTracer) Expand(view string, line, lines int) {
	logging.Trace("tree.expand", map[string]interface{}{"view": view, "line": line, "lines": lines})
}

func (TreeTracer) Collapse(view string, line, removed int) {
	logging.Trace("tree.collapse", map[string]interface{}{"view": view, "line": line, "removed": removed})
}

func (TreeTracer) Reveal(view string, expand int, shown bool) {
	logging.Trace("tree.reveal", map[string]interface{}{"view": view, "expand": expand, "shown": shown})
}

func (TreeTracer) HeadLines(view string, message, title int) {
	logging.Trace("tree.head", map[string]interface{}{"view": view, "message": message, "title": title})
}

func (SelectionTracer) Changed(view string, count int) {
	logging.Trace("selection.changed", map[string]interface{}{"view": view, "count": count})
}

func (SelectionTracer) Cleared(view string) {
	logging.Trace("selection.cleared", map[string]interface{}{"view": view})
}
