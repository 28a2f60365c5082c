package payload

import (
	"sync"

	"github.com/moyoez/sharesession/task"
)

// Handle is what the transport holds instead of the tracker itself. Updates
// hop onto the session runner; after Release they are dropped, so a session
// that finished never hears from the transport again.
type Handle struct {
	mu      sync.Mutex
	runner  task.Runner
	tracker *Tracker
}

func NewHandle(runner task.Runner, tracker *Tracker) *Handle {
	return &Handle{runner: runner, tracker: tracker}
}

func (h *Handle) OnStatusUpdate(update TransferUpdate) {
	if h.Tracker() == nil {
		return
	}
	h.runner.PostTask(func() {
		if t := h.Tracker(); t != nil {
			t.OnStatusUpdate(update)
		}
	})
}

// Tracker returns the live tracker, or nil once released.
func (h *Handle) Tracker() *Tracker {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tracker
}

func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tracker = nil
}
