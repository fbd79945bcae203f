package content

import (
	"context"
	"sync"
)

// TransitionFunc observes a post status change. It runs synchronously on the
// goroutine that saved the post.
type TransitionFunc func(ctx context.Context, newStatus, oldStatus string, post *Post)

// Hooks holds the callbacks fired on post status transitions.
type Hooks struct {
	mu          sync.RWMutex
	transitions []TransitionFunc
}

func NewHooks() *Hooks {
	return &Hooks{}
}

// OnTransition registers fn. Callbacks run in registration order.
func (h *Hooks) OnTransition(fn TransitionFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transitions = append(h.transitions, fn)
}

// FireTransition calls every registered callback and returns once all have finished.
func (h *Hooks) FireTransition(ctx context.Context, newStatus, oldStatus string, post *Post) {
	h.mu.RLock()
	fns := make([]TransitionFunc, len(h.transitions))
	copy(fns, h.transitions)
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, newStatus, oldStatus, post)
	}
}
