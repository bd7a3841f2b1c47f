package backend

import (
	"context"
	"sync"
	"time"

	"github.com/atomicstack/popup-tree/internal/logging/events"
	"github.com/atomicstack/popup-tree/internal/tmux"
)

const defaultMinInterval = 250 * time.Millisecond

// Source is one pollable data feed.
type Source struct {
	Name  string
	Fetch func(ctx context.Context) (interface{}, error)
	// MinInterval spaces successive fetches; zero uses 250ms.
	MinInterval time.Duration
}

// Event conveys updated data or an error from a backend poll.
type Event struct {
	Source string
	Data   interface{}
	Err    error
}

// TmuxSnapshots polls every session, window and pane of the server at
// socketPath.
func TmuxSnapshots(socketPath string) Source {
	return Source{
		Name: "tmux",
		Fetch: func(ctx context.Context) (interface{}, error) {
			return tmux.FetchSnapshot(socketPath)
		},
	}
}

// Watcher polls its sources at a fixed interval and publishes events.
type Watcher struct {
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	wg     sync.WaitGroup
}

// NewWatcher starts one poller per source. Each source is fetched once
// immediately and then every interval.
func NewWatcher(interval time.Duration, sources ...Source) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan Event, 16),
	}

	for _, src := range sources {
		w.start(src)
	}

	go func() {
		w.wg.Wait()
		close(w.events)
	}()

	return w
}

// Events returns a channel of backend events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop cancels the watcher. Pollers exit after their current fetch completes;
// use Wait if a clean drain is required (e.g. in tests).
func (w *Watcher) Stop() {
	w.cancel()
}

// Wait blocks until all poller goroutines have exited and the events channel
// is closed. Call after Stop when a clean shutdown is required.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) start(src Source) {
	minInterval := src.MinInterval
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}
	throttle := newThrottle(minInterval)
	w.wg.Add(1)
	go w.poll(src.Name, func(ctx context.Context) (interface{}, error) {
		throttle.wait()
		return src.Fetch(ctx)
	})
}

func (w *Watcher) poll(name string, fetch func(context.Context) (interface{}, error)) {
	defer w.wg.Done()

	emit := func() bool {
		data, err := fetch(w.ctx)
		events.Provider.Poll(name, err == nil, err)
		evt := Event{Source: name, Data: data, Err: err}
		select {
		case <-w.ctx.Done():
			return false
		case w.events <- evt:
			return true
		}
	}

	if !emit() {
		return
	}

	interval := w.interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if !emit() {
				return
			}
		}
	}
}
