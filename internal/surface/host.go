package surface

import (
	"context"
	"fmt"
	"sync"

	"github.com/atomicstack/popup-tree/internal/tree"
)

// Host opens Buffers. Surface names come from a per-host counter.
type Host struct {
	mu      sync.Mutex
	next    int
	buffers map[string]*Buffer
	onOpen  func(*Buffer)
}

func NewHost() *Host {
	return &Host{buffers: map[string]*Buffer{}}
}

// OnOpen registers fn to run for every newly opened buffer.
func (h *Host) OnOpen(fn func(*Buffer)) {
	h.mu.Lock()
	h.onOpen = fn
	h.mu.Unlock()
}

// Open allocates a buffer for viewID, closing any buffer the view still
// holds.
func (h *Host) Open(ctx context.Context, viewID string, opts tree.OpenOptions) (tree.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	prev := h.buffers[viewID]
	h.next++
	b := NewBuffer(fmt.Sprintf("PopupTree%d", h.next), viewID, opts)
	b.onClose = func() {
		h.mu.Lock()
		if h.buffers[viewID] == b {
			delete(h.buffers, viewID)
		}
		h.mu.Unlock()
	}
	h.buffers[viewID] = b
	onOpen := h.onOpen
	h.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	if onOpen != nil {
		onOpen(b)
	}
	return b, nil
}

// Buffer returns the open buffer of viewID, or nil.
func (h *Host) Buffer(viewID string) *Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buffers[viewID]
}
