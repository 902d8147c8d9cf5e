// Package sync is the resource sync layer: the fetch-on-mount,
// refetch-after-write, debounced-search plumbing shared by every
// command, factored out of the pages that used to duplicate it.
//
// An Entry is the cache for one (resource, parameter tuple) pair.
// A Controller rate-limits tuple changes into an Entry. A Coordinator
// runs a validated mutation and refreshes the owning Entry before
// declaring the mutation settled. All three are safe for use from
// multiple goroutines; fetch results are applied under a single lock
// and stale results are discarded by sequence number.
package sync

import (
	"context"
	"sync"
)

// Params is a parameter tuple. Tuples with equal keys are
// cache-equivalent.
type Params interface {
	Key() string
}

// State is the lifecycle of a cache entry.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchFunc loads the collection selected by params.
type FetchFunc[P Params, T any] func(ctx context.Context, params P) (T, error)

// Snapshot is a consistent view of an entry. Data holds the last
// successful result even while a newer fetch is in flight, so a view
// is never blanked during a refresh.
type Snapshot[T any] struct {
	State   State
	Data    T
	HasData bool
	Err     error
	Key     string
}

// Entry is the per-tuple cache state machine:
// Idle -> Loading -> Ready | Failed, with Loading re-enterable on
// parameter changes. A fetch for the tuple currently loading is
// suppressed; a fetch for a different tuple supersedes the old one,
// and the old result is discarded if it arrives late.
type Entry[P Params, T any] struct {
	fetch FetchFunc[P, T]

	mu        sync.Mutex
	state     State
	data      T
	hasData   bool
	err       error
	key       string
	params    P
	hasParams bool
	seq       uint64
	closed    bool
	changed   chan struct{}
}

// NewEntry creates an idle entry backed by fetch.
func NewEntry[P Params, T any](fetch FetchFunc[P, T]) *Entry[P, T] {
	return &Entry[P, T]{
		fetch:   fetch,
		changed: make(chan struct{}),
	}
}

// Refresh moves the entry to Loading for params and starts a fetch.
// If the entry is already loading the same tuple the call is a no-op
// (at most one in-flight fetch per tuple). A different tuple
// supersedes any in-flight fetch.
func (e *Entry[P, T]) Refresh(ctx context.Context, params P) {
	e.refresh(ctx, params, false)
}

// ForceRefresh always starts a new fetch, superseding any in-flight
// one even for the same tuple. Used after mutations, where a fetch
// started before the write could otherwise settle with stale data.
func (e *Entry[P, T]) ForceRefresh(ctx context.Context, params P) {
	e.refresh(ctx, params, true)
}

// Retry re-issues the last requested tuple. It is the scoped retry
// action for a failed entry; calling it before any Refresh is a
// no-op.
func (e *Entry[P, T]) Retry(ctx context.Context) {
	e.mu.Lock()
	if e.closed || !e.hasParams {
		e.mu.Unlock()
		return
	}
	params := e.params
	e.mu.Unlock()
	e.refresh(ctx, params, true)
}

func (e *Entry[P, T]) refresh(ctx context.Context, params P, force bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	key := params.Key()
	if !force && e.state == StateLoading && e.key == key {
		e.mu.Unlock()
		return
	}
	e.seq++
	seq := e.seq
	e.state = StateLoading
	e.key = key
	e.params = params
	e.hasParams = true
	e.notifyLocked()
	e.mu.Unlock()

	go func() {
		data, err := e.fetch(ctx, params)
		e.settle(seq, data, err)
	}()
}

// settle applies a fetch result. Results whose sequence number is no
// longer current belong to a superseded tuple (or arrived after
// Close) and are dropped, which is what keeps a slow "ab" response
// from overwriting a fresher "abc" one.
func (e *Entry[P, T]) settle(seq uint64, data T, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || seq != e.seq {
		return
	}
	if err != nil {
		e.state = StateFailed
		e.err = err
	} else {
		e.state = StateReady
		e.data = data
		e.hasData = true
		e.err = nil
	}
	e.notifyLocked()
}

// Snapshot returns the entry's current view.
func (e *Entry[P, T]) Snapshot() Snapshot[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Entry[P, T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		State:   e.state,
		Data:    e.data,
		HasData: e.hasData,
		Err:     e.err,
		Key:     e.key,
	}
}

// Settled blocks until the current tuple resolves to Ready or Failed,
// or ctx is done. An idle entry counts as settled.
func (e *Entry[P, T]) Settled(ctx context.Context) (Snapshot[T], error) {
	for {
		e.mu.Lock()
		if e.closed || e.state != StateLoading {
			snap := e.snapshotLocked()
			e.mu.Unlock()
			return snap, nil
		}
		ch := e.changed
		e.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Snapshot[T]{}, ctx.Err()
		}
	}
}

// Close tears the entry down. In-flight fetch results arriving after
// Close are ignored; no state is mutated and no notification fires.
func (e *Entry[P, T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.seq++
	e.notifyLocked()
}

// notifyLocked wakes every Settled waiter. Callers hold e.mu.
func (e *Entry[P, T]) notifyLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}
