package sync_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"billow/internal/sync"
)

func countingFetch(calls *atomic.Int64, last *atomic.Value) sync.FetchFunc[testParams, string] {
	return func(ctx context.Context, p testParams) (string, error) {
		calls.Add(1)
		last.Store(string(p))
		return string(p), nil
	}
}

func TestFirstSetFiresImmediately(t *testing.T) {
	var calls atomic.Int64
	var last atomic.Value
	entry := sync.NewEntry(countingFetch(&calls, &last))
	ctrl := sync.NewController(context.Background(), entry, 200*time.Millisecond)
	defer ctrl.Close()

	ctrl.Set(testParams("initial"))
	if _, err := ctrl.Settled(context.Background()); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("initial load must not wait out the window; %d calls", calls.Load())
	}
}

func TestBurstCollapsesToOneRequest(t *testing.T) {
	var calls atomic.Int64
	var last atomic.Value
	entry := sync.NewEntry(countingFetch(&calls, &last))
	ctrl := sync.NewController(context.Background(), entry, 40*time.Millisecond)
	defer ctrl.Close()

	ctx := context.Background()
	ctrl.Set(testParams(""))
	if _, err := ctrl.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	// Keystrokes faster than the window.
	ctrl.Set(testParams("a"))
	ctrl.Set(testParams("ab"))
	ctrl.Set(testParams("abc"))

	time.Sleep(100 * time.Millisecond)
	if _, err := ctrl.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("burst should collapse to one trailing request, got %d total calls", got)
	}
	if last.Load() != "abc" {
		t.Errorf("trailing request used %v, want the final tuple abc", last.Load())
	}
}

func TestSpacedSetsEachFire(t *testing.T) {
	var calls atomic.Int64
	var last atomic.Value
	entry := sync.NewEntry(countingFetch(&calls, &last))
	ctrl := sync.NewController(context.Background(), entry, 20*time.Millisecond)
	defer ctrl.Close()

	ctx := context.Background()
	ctrl.Set(testParams("a"))
	if _, err := ctrl.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	for _, p := range []testParams{"ab", "abc"} {
		ctrl.Set(p)
		time.Sleep(60 * time.Millisecond)
	}
	if _, err := ctrl.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("sets spaced past the window should each fetch, got %d calls", got)
	}
}

func TestCloseCancelsPendingFire(t *testing.T) {
	var calls atomic.Int64
	var last atomic.Value
	entry := sync.NewEntry(countingFetch(&calls, &last))
	ctrl := sync.NewController(context.Background(), entry, 30*time.Millisecond)

	ctrl.Set(testParams("a"))
	if _, err := ctrl.Settled(context.Background()); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	ctrl.Set(testParams("ab"))
	ctrl.Close()
	time.Sleep(80 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("pending debounce must not fire after close, got %d calls", got)
	}
}
