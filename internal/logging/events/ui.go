package events

import "github.com/atomicstack/popup-tree/internal/logging"

type UITracer struct{}

type FilterTracer struct{}

type ActionTracer struct{}

type CommandTracer struct{}

var (
	UI      = UITracer{}
	Filter  = FilterTracer{}
	Action  = ActionTracer{}
	Command = CommandTracer{}
)

func (UITracer) Key(key string, filtering bool) {
	logging.Trace("ui.key", map[string]interface{}{"key": key, "filtering": filtering})
}

func (UITracer) Click(line, col int) {
	logging.Trace("ui.click", map[string]interface{}{"line": line, "col": col})
}

func (UITracer) Cursor(line int) {
	logging.Trace("ui.cursor", map[string]interface{}{"line": line})
}

func (UITracer) Resize(width, height int) {
	logging.Trace("ui.resize", map[string]interface{}{"width": width, "height": height})
}

func (ActionTracer) Run(view, name string) {
	logging.Trace("action.run", map[string]interface{}{"view": view, "name": name})
}

func (ActionTracer) Error(err error) {
	if err == nil {
		return
	}
	logging.Trace("action.error", map[string]interface{}{"error": err.Error()})
}

func (ActionTracer) Success(info string) {
	logging.Trace("action.success", map[string]interface{}{"info": info})
}

func (FilterTracer) Activate(view string) {
	logging.Trace("filter.activate", map[string]interface{}{"view": view})
}

func (FilterTracer) Update(view, text string) {
	logging.Trace("filter.update", map[string]interface{}{"view": view, "text": text})
}

func (FilterTracer) Results(view, text string, count int) {
	logging.Trace("filter.results", map[string]interface{}{"view": view, "text": text, "count": count})
}

func (FilterTracer) Navigate(view, key string) {
	logging.Trace("filter.navigate", map[string]interface{}{"view": view, "key": key})
}

func (FilterTracer) Exit(view string, chosen bool) {
	logging.Trace("filter.exit", map[string]interface{}{"view": view, "chosen": chosen})
}

func (CommandTracer) Queue(id, label string) {
	logging.Trace("command.queue", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) Skip(id, label string) {
	logging.Trace("command.skip", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) Result(id, label, msgType string) {
	logging.Trace("command.result", map[string]interface{}{"id": id, "label": label, "msg": msgType})
}
