package export_test

import (
	"strings"
	"testing"
	"time"

	"billow/internal/export"
	"billow/pkg/models"
)

func TestWriteInvoicesCSVHeader(t *testing.T) {
	var buf strings.Builder
	if err := export.WriteInvoicesCSV(&buf, nil); err != nil {
		t.Fatalf("WriteInvoicesCSV failed: %v", err)
	}

	want := "Invoice ID,Client,Invoice Date,Amount,Currency,Status,Due Date,Created At\n"
	if buf.String() != want {
		t.Errorf("header row = %q, want %q", buf.String(), want)
	}
}

func TestWriteInvoicesCSVQuotesCommas(t *testing.T) {
	invoices := []models.Invoice{{
		ID:           "INV-20240101-120000-000001",
		ClientName:   "Acme, Inc.",
		InvoiceDate:  "2024-01-01",
		Amount:       1500,
		CurrencyType: "USD",
		Status:       models.StatusUnpaid,
		DueDate:      "2024-02-01",
		CreatedAt:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}}

	var buf strings.Builder
	if err := export.WriteInvoicesCSV(&buf, invoices); err != nil {
		t.Fatalf("WriteInvoicesCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], `"Acme, Inc."`) {
		t.Errorf("client name with comma must be double-quoted, got %q", lines[1])
	}
	if !strings.Contains(lines[1], "1500.00") {
		t.Errorf("amount should be fixed to two decimals, got %q", lines[1])
	}
	if !strings.Contains(lines[1], "2024-01-01T10:00:00Z") {
		t.Errorf("created timestamp should be RFC3339, got %q", lines[1])
	}
}

func TestWriteInvoicesCSVZeroCreatedAt(t *testing.T) {
	invoices := []models.Invoice{{
		ID:         "INV-1",
		ClientName: "Acme",
	}}

	var buf strings.Builder
	if err := export.WriteInvoicesCSV(&buf, invoices); err != nil {
		t.Fatalf("WriteInvoicesCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if !strings.HasSuffix(lines[1], ",") {
		t.Errorf("missing created timestamp should export as empty field, got %q", lines[1])
	}
}

func TestFilenames(t *testing.T) {
	if got := export.InvoiceFilename("INV-42"); got != "INV-42.csv" {
		t.Errorf("InvoiceFilename = %q", got)
	}

	at := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	if got := export.BulkFilename("USR-7", at); got != "USR-7_2026-08-31.csv" {
		t.Errorf("BulkFilename = %q", got)
	}
}
