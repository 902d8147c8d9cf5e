package sync_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"billow/internal/sync"
)

// testParams is a minimal parameter tuple for entry tests.
type testParams string

func (p testParams) Key() string { return string(p) }

// blockingFetch returns a fetch function whose completion is
// controlled per tuple: each call blocks until the tuple's gate
// channel is closed, then returns the tuple string as data.
func blockingFetch(gates map[string]chan struct{}, calls *atomic.Int64) sync.FetchFunc[testParams, string] {
	return func(ctx context.Context, params testParams) (string, error) {
		calls.Add(1)
		if gate, ok := gates[string(params)]; ok {
			<-gate
		}
		return "result:" + string(params), nil
	}
}

func TestRefreshSettlesReady(t *testing.T) {
	var calls atomic.Int64
	entry := sync.NewEntry(blockingFetch(nil, &calls))
	defer entry.Close()

	entry.Refresh(context.Background(), testParams("a"))
	snap, err := entry.Settled(context.Background())
	if err != nil {
		t.Fatalf("Settled failed: %v", err)
	}
	if snap.State != sync.StateReady {
		t.Fatalf("state = %s, want ready", snap.State)
	}
	if snap.Data != "result:a" {
		t.Errorf("data = %q", snap.Data)
	}
}

func TestDuplicateRefreshSuppressed(t *testing.T) {
	gates := map[string]chan struct{}{"a": make(chan struct{})}
	var calls atomic.Int64
	entry := sync.NewEntry(blockingFetch(gates, &calls))
	defer entry.Close()

	ctx := context.Background()
	entry.Refresh(ctx, testParams("a"))
	entry.Refresh(ctx, testParams("a"))
	entry.Refresh(ctx, testParams("a"))

	close(gates["a"])
	if _, err := entry.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("same tuple while loading must be suppressed; fetch ran %d times", calls.Load())
	}
}

func TestStaleResponseRejected(t *testing.T) {
	gates := map[string]chan struct{}{
		"ab":  make(chan struct{}),
		"abc": make(chan struct{}),
	}
	var calls atomic.Int64
	entry := sync.NewEntry(blockingFetch(gates, &calls))
	defer entry.Close()

	ctx := context.Background()
	entry.Refresh(ctx, testParams("ab"))
	entry.Refresh(ctx, testParams("abc"))

	// The fresher tuple resolves first; the slow one arrives late.
	close(gates["abc"])
	snap, err := entry.Settled(ctx)
	if err != nil {
		t.Fatalf("Settled failed: %v", err)
	}
	if snap.Data != "result:abc" {
		t.Fatalf("data = %q, want result:abc", snap.Data)
	}

	close(gates["ab"])
	time.Sleep(50 * time.Millisecond)

	snap = entry.Snapshot()
	if snap.Data != "result:abc" {
		t.Errorf("late response for superseded tuple overwrote data: %q", snap.Data)
	}
	if snap.Key != "abc" {
		t.Errorf("key = %q, want abc", snap.Key)
	}
}

func TestStaleWhileRevalidate(t *testing.T) {
	gates := map[string]chan struct{}{"b": make(chan struct{})}
	var calls atomic.Int64
	entry := sync.NewEntry(blockingFetch(gates, &calls))
	defer entry.Close()

	ctx := context.Background()
	entry.Refresh(ctx, testParams("a"))
	if _, err := entry.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	entry.Refresh(ctx, testParams("b"))
	snap := entry.Snapshot()
	if snap.State != sync.StateLoading {
		t.Fatalf("state = %s, want loading", snap.State)
	}
	if !snap.HasData || snap.Data != "result:a" {
		t.Errorf("last good data must remain visible during refresh, got %+v", snap)
	}
	close(gates["b"])
}

func TestFailedKeepsPriorData(t *testing.T) {
	fail := false
	entry := sync.NewEntry(func(ctx context.Context, p testParams) (string, error) {
		if fail {
			return "", errors.New("backend down")
		}
		return "good", nil
	})
	defer entry.Close()

	ctx := context.Background()
	entry.Refresh(ctx, testParams("a"))
	if _, err := entry.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	fail = true
	entry.Retry(ctx)
	snap, err := entry.Settled(ctx)
	if err != nil {
		t.Fatalf("Settled failed: %v", err)
	}
	if snap.State != sync.StateFailed {
		t.Fatalf("state = %s, want failed", snap.State)
	}
	if !snap.HasData || snap.Data != "good" {
		t.Errorf("failure must not blank the last good data: %+v", snap)
	}
}

func TestRetryReissuesLastTuple(t *testing.T) {
	var lastParams atomic.Value
	var calls atomic.Int64
	entry := sync.NewEntry(func(ctx context.Context, p testParams) (string, error) {
		calls.Add(1)
		lastParams.Store(string(p))
		return string(p), nil
	})
	defer entry.Close()

	ctx := context.Background()
	entry.Refresh(ctx, testParams("query"))
	if _, err := entry.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	entry.Retry(ctx)
	if _, err := entry.Settled(ctx); err != nil {
		t.Fatalf("Settled failed: %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("retry should fetch again, got %d calls", calls.Load())
	}
	if lastParams.Load() != "query" {
		t.Errorf("retry used tuple %v, want query", lastParams.Load())
	}
}

func TestRetryBeforeAnyRefreshIsNoop(t *testing.T) {
	var calls atomic.Int64
	entry := sync.NewEntry(blockingFetch(nil, &calls))
	defer entry.Close()

	entry.Retry(context.Background())
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("retry without a prior tuple must not fetch")
	}
}

func TestTeardownIgnoresInFlightResponse(t *testing.T) {
	gates := map[string]chan struct{}{"a": make(chan struct{})}
	var calls atomic.Int64
	entry := sync.NewEntry(blockingFetch(gates, &calls))

	entry.Refresh(context.Background(), testParams("a"))
	entry.Close()
	close(gates["a"])
	time.Sleep(50 * time.Millisecond)

	snap := entry.Snapshot()
	if snap.HasData {
		t.Errorf("response arriving after teardown must not mutate state: %+v", snap)
	}

	// Refresh after close is also a no-op.
	entry.Refresh(context.Background(), testParams("b"))
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("refresh after close must not fetch; fetch ran %d times", calls.Load())
	}
}

func TestSettledHonorsContext(t *testing.T) {
	gates := map[string]chan struct{}{"a": make(chan struct{})}
	var calls atomic.Int64
	entry := sync.NewEntry(blockingFetch(gates, &calls))
	defer entry.Close()
	defer close(gates["a"])

	entry.Refresh(context.Background(), testParams("a"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := entry.Settled(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Settled should surface ctx expiry, got %v", err)
	}
}
