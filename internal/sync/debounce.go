package sync

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounceWindow is how long input must stay quiet before a
// debounced tuple change is issued.
const DefaultDebounceWindow = 300 * time.Millisecond

// Controller converts a rapid stream of parameter changes (typically
// search keystrokes) into a bounded rate of fetches on its entry.
//
// The first tuple ever set is issued immediately, so the initial load
// is not delayed. Every later change arms a timer for the window;
// changes arriving before it fires replace the pending tuple and
// reset the timer, so a burst of N changes costs one fetch, for the
// last tuple in the burst.
type Controller[P Params, T any] struct {
	entry  *Entry[P, T]
	window time.Duration
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	timer      *time.Timer
	pending    P
	hasPending bool
	started    bool
	closed     bool
}

// NewController wraps entry with a debounce window. window <= 0 uses
// DefaultDebounceWindow. The controller derives its fetch context
// from ctx; canceling ctx (or calling Close) tears the controller
// down.
func NewController[P Params, T any](ctx context.Context, entry *Entry[P, T], window time.Duration) *Controller[P, T] {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	cctx, cancel := context.WithCancel(ctx)
	return &Controller[P, T]{
		entry:  entry,
		window: window,
		ctx:    cctx,
		cancel: cancel,
	}
}

// Entry returns the controller's cache entry, for reading snapshots
// and awaiting settlement.
func (c *Controller[P, T]) Entry() *Entry[P, T] {
	return c.entry
}

// Set records a parameter change. Responses are applied to the entry
// only while their tuple is still the newest issued one; the entry's
// sequence numbering drops anything superseded.
func (c *Controller[P, T]) Set(params P) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if !c.started {
		c.started = true
		c.entry.Refresh(c.ctx, params)
		return
	}

	c.pending = params
	c.hasPending = true
	if c.timer == nil {
		c.timer = time.AfterFunc(c.window, c.fire)
	} else {
		c.timer.Reset(c.window)
	}
}

// fire runs on the timer goroutine once input has stayed quiet for a
// full window.
func (c *Controller[P, T]) fire() {
	c.mu.Lock()
	if c.closed || !c.hasPending {
		c.timer = nil
		c.mu.Unlock()
		return
	}
	params := c.pending
	c.hasPending = false
	c.timer = nil
	c.mu.Unlock()

	c.entry.Refresh(c.ctx, params)
}

// Settled blocks until the entry resolves for the newest issued
// tuple. A pending (not yet fired) change is not waited for.
func (c *Controller[P, T]) Settled(ctx context.Context) (Snapshot[T], error) {
	return c.entry.Settled(ctx)
}

// Close cancels any pending timer, cancels in-flight fetches, and
// closes the entry. A timer that was about to fire becomes a no-op,
// and late responses never touch entry state.
func (c *Controller[P, T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.hasPending = false
	c.mu.Unlock()

	c.cancel()
	c.entry.Close()
}
