package tree

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/atomicstack/popup-tree/internal/logging/events"
)

const candidateWorkers = 4

type filterHooks[T comparable] struct {
	update func(ctx context.Context, text string) error
	exit   func(ctx context.Context, node T, chosen bool) error
	nav    func(ctx context.Context, key string) error
}

// promptFilter owns the filter prompt text and activation. It talks to the
// view only through hooks.
type promptFilter[T comparable] struct {
	mu      sync.Mutex
	active  bool
	text    string
	navKeys map[string]bool
	hooks   filterHooks[T]
}

func newPromptFilter[T comparable](hooks filterHooks[T]) *promptFilter[T] {
	return &promptFilter[T]{hooks: hooks}
}

func (f *promptFilter[T]) activate(navKeys []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = true
	f.text = ""
	f.navKeys = make(map[string]bool, len(navKeys))
	for _, k := range navKeys {
		if k != "" {
			f.navKeys[k] = true
		}
	}
}

func (f *promptFilter[T]) isActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// deactivate leaves filter mode; node is the chosen line when chosen is set.
func (f *promptFilter[T]) deactivate(ctx context.Context, node T, chosen bool) error {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return nil
	}
	f.active = false
	f.text = ""
	exit := f.hooks.exit
	f.mu.Unlock()
	if exit == nil {
		return nil
	}
	return exit(ctx, node, chosen)
}

// input feeds one key to the prompt.
func (f *promptFilter[T]) input(ctx context.Context, key string) error {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return nil
	}
	if f.navKeys[key] {
		nav := f.hooks.nav
		f.mu.Unlock()
		if nav == nil {
			return nil
		}
		return nav(ctx, key)
	}
	switch key {
	case "esc":
		f.mu.Unlock()
		var zero T
		return f.deactivate(ctx, zero, false)
	case "backspace":
		if f.text == "" {
			f.mu.Unlock()
			return nil
		}
		_, size := utf8.DecodeLastRuneInString(f.text)
		f.text = f.text[:len(f.text)-size]
	case "ctrl+u":
		f.text = ""
	default:
		r, ok := printable(key)
		if !ok {
			f.mu.Unlock()
			return nil
		}
		f.text += r
	}
	text := f.text
	update := f.hooks.update
	f.mu.Unlock()
	if update == nil {
		return nil
	}
	return update(ctx, text)
}

// reset leaves filter mode without running the exit hook.
func (f *promptFilter[T]) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.text = ""
}

func (f *promptFilter[T]) dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.text = ""
	f.hooks = filterHooks[T]{}
}

func printable(key string) (string, bool) {
	if key == "space" {
		return " ", true
	}
	r, size := utf8.DecodeRuneInString(key)
	if size != len(key) || r == utf8.RuneError || !unicode.IsPrint(r) {
		return "", false
	}
	return key, true
}

// ActivateFilter enters filter mode when the view allows filtering.
func (v *View[T]) ActivateFilter(ctx context.Context) error {
	if !v.opts.EnableFilter {
		return nil
	}
	release, err := v.lock.acquire(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	if v.surface == nil || v.filtering || v.state != stateShown {
		v.mu.Unlock()
		release()
		return nil
	}
	keys := v.cfg.Keys
	v.clearSelectionLocked()
	v.filter.activate([]string{"up", "down", "enter", keys.SelectNext, keys.SelectPrevious, keys.Invoke})
	v.setFilterTextLocked("", true)
	start := v.startLocked() - 1
	v.batchLocked(func(b Batch) { b.SetCursor(start) })
	events.Filter.Activate(v.id)
	v.unlock()
	release()
	return v.applyFilter(ctx, "")
}

// setFilterTextLocked draws the prompt and drops the body, or removes the
// prompt line when on is false.
func (v *View[T]) setFilterTextLocked(text string, on bool) {
	start := v.messageLine + v.titleLine
	if on {
		v.filtering = true
		v.filterText = text
		v.lines = nil
		hl := Highlight{Line: start, ColStart: len(text), ColEnd: len(text) + 1, Group: GroupCursor}
		v.updateRegionLocked([]string{text + " "}, []Highlight{hl}, start, -1, true)
		return
	}
	if !v.filtering {
		return
	}
	v.filtering = false
	v.filterText = ""
	v.updateRegionLocked(nil, nil, start, start+1, false)
}

func (v *View[T]) onFilterUpdate(ctx context.Context, text string) error {
	release, err := v.lock.acquire(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	if !v.filtering {
		v.mu.Unlock()
		release()
		return nil
	}
	v.setFilterTextLocked(text, true)
	v.unlock()
	release()
	events.Filter.Update(v.id, text)
	return v.applyFilter(ctx, text)
}

func (v *View[T]) onFilterExit(ctx context.Context, node T, chosen bool) error {
	release, err := v.lock.acquire(ctx)
	if err != nil {
		return err
	}
	v.cache.clear()
	v.mu.Lock()
	v.setFilterTextLocked("", false)
	v.candidates, v.haveCands = nil, false
	_, canReveal := v.provider.(ParentProvider[T])
	events.Filter.Exit(v.id, chosen)
	if chosen && canReveal {
		v.lines = nil
		v.unlock()
		release()
		return v.Reveal(ctx, node, RevealOptions{Focus: true})
	}
	v.clearSelectionLocked()
	v.unlock()
	release()
	return v.render(ctx)
}

func (v *View[T]) onFilterNav(ctx context.Context, key string) error {
	keys := v.Config().Keys
	switch key {
	case "up", keys.SelectPrevious:
		v.selectRelative(-1)
	case "down", keys.SelectNext:
		v.selectRelative(1)
	case "enter", keys.Invoke:
		v.mu.Lock()
		var node T
		ok := len(v.selection) > 0
		if ok {
			node = v.selection[0]
		}
		v.mu.Unlock()
		if !ok {
			return nil
		}
		if err := v.invoke(ctx, node); err != nil {
			v.report(err)
		}
		return v.filter.deactivate(ctx, node, true)
	}
	events.Filter.Navigate(v.id, key)
	return nil
}

// Config returns the active configuration.
func (v *View[T]) Config() Config {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg
}

// collectCandidates walks the whole unfiltered tree in pre-order.
func (v *View[T]) collectCandidates(ctx context.Context) ([]T, error) {
	var zero T
	roots, err := v.provider.Children(ctx, zero)
	if err != nil {
		return nil, &ProviderError{Op: "children", Err: err}
	}
	return v.expandCandidates(ctx, roots)
}

// expandCandidates fetches the subtrees of siblings concurrently and joins
// them in sibling order.
func (v *View[T]) expandCandidates(ctx context.Context, nodes []T) ([]T, error) {
	subtrees := make([][]T, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(candidateWorkers)
	for i, node := range nodes {
		g.Go(func() error {
			children, err := v.provider.Children(gctx, node)
			if err != nil {
				return &ProviderError{Op: "children", Err: err}
			}
			if len(children) == 0 {
				return nil
			}
			sub, err := v.expandCandidates(gctx, children)
			if err != nil {
				return err
			}
			subtrees[i] = sub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []T
	for i, node := range nodes {
		out = append(out, node)
		out = append(out, subtrees[i]...)
	}
	return out, nil
}

type filterResult[T comparable] struct {
	node  T
	text  string
	hls   []Highlight
	index int
	score int
}

// applyFilter recomputes the filtered projection for text.
func (v *View[T]) applyFilter(ctx context.Context, text string) error {
	release, err := v.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	v.mu.Lock()
	cands, have := v.candidates, v.haveCands
	opts := v.cfg.renderOptions()
	v.mu.Unlock()
	if !have {
		if cands, err = v.collectCandidates(ctx); err != nil {
			v.report(fmt.Errorf("filter tree %s: %w", v.id, err))
			return err
		}
		v.mu.Lock()
		v.candidates, v.haveCands = cands, true
		v.mu.Unlock()
	}

	results := make([]filterResult[T], 0, len(cands))
	for i, node := range cands {
		item, err := v.cache.resolve(ctx, node)
		if err != nil {
			v.report(fmt.Errorf("filter tree %s: %w", v.id, err))
			return err
		}
		score := 0
		var spans [][2]int
		if text != "" {
			ok, s, positions := v.matcher.Match(text, item.Label.Text)
			if !ok {
				continue
			}
			score = s
			spans = GroupPositions(item.Label.Text, positions)
		}
		item.CollapsibleState = None
		item.Label = Label{Text: item.Label.Text, Highlights: spans}
		line, hls := renderLine(item, 0, 0, opts)
		results = append(results, filterResult[T]{node: node, text: line, hls: hls, index: i, score: score})
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})

	v.mu.Lock()
	defer v.unlock()
	if !v.filtering || v.filterText != text {
		return nil
	}
	start := v.startLocked()
	lines := make([]RenderedLine[T], len(results))
	texts := make([]string, len(results))
	var hls []Highlight
	for i, r := range results {
		lines[i] = RenderedLine[T]{Node: r.node, Level: 0, Text: r.text}
		texts[i] = r.text
		for _, h := range r.hls {
			h.Line = start + i
			hls = append(hls, h)
		}
	}
	v.lines = lines
	v.updateRegionLocked(texts, hls, start, -1, true)
	if len(lines) > 0 {
		v.selectLocked(lines[0].Node, true, false)
	} else {
		v.clearSelectionLocked()
		v.batchLocked(func(b Batch) { b.Redraw() })
	}
	events.Filter.Results(v.id, text, len(lines))
	return nil
}
