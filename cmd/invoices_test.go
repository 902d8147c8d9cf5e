package cmd

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"billow/internal/sync"
	"billow/pkg/models"
)

func TestInteractiveSearchRetryReissuesSameTuple(t *testing.T) {
	var calls atomic.Int64
	var lastSearch atomic.Value
	entry := sync.NewEntry(func(ctx context.Context, q models.InvoiceQuery) ([]models.Invoice, error) {
		calls.Add(1)
		lastSearch.Store(q.Search)
		return nil, errors.New("backend down")
	})

	in := strings.NewReader(":retry\n")
	if err := runInvoiceSearch(context.Background(), in, entry, models.InvoiceQuery{Search: "acme"}); err != nil {
		t.Fatalf("search loop failed: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf(":retry should refetch once after the initial load, got %d fetches", got)
	}
	if lastSearch.Load() != "acme" {
		t.Errorf("retry changed the tuple: fetched search %v, want acme", lastSearch.Load())
	}
}

func TestInteractiveSearchInputChangesTuple(t *testing.T) {
	var calls atomic.Int64
	var lastSearch atomic.Value
	entry := sync.NewEntry(func(ctx context.Context, q models.InvoiceQuery) ([]models.Invoice, error) {
		calls.Add(1)
		lastSearch.Store(q.Search)
		return nil, nil
	})

	in := strings.NewReader("globex\n")
	if err := runInvoiceSearch(context.Background(), in, entry, models.InvoiceQuery{}); err != nil {
		t.Fatalf("search loop failed: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("want initial load plus one debounced search, got %d fetches", got)
	}
	if lastSearch.Load() != "globex" {
		t.Errorf("fetched search %v, want globex", lastSearch.Load())
	}
}
