// Package export serializes already-fetched invoice data: CSV files
// for download and report rows pushed to a Google Sheet. It is a pure
// serialization layer over backend-supplied values; nothing here
// refetches or recomputes.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"billow/pkg/models"
)

// csvHeader is the fixed export header row. Column order is part of
// the export contract.
var csvHeader = []string{
	"Invoice ID", "Client", "Invoice Date", "Amount",
	"Currency", "Status", "Due Date", "Created At",
}

// WriteInvoicesCSV writes the export header followed by one row per
// invoice. Fields containing commas come out double-quoted per CSV
// rules.
func WriteInvoicesCSV(w io.Writer, invoices []models.Invoice) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("export: failed to write CSV header: %w", err)
	}
	for _, inv := range invoices {
		created := ""
		if !inv.CreatedAt.IsZero() {
			created = inv.CreatedAt.Format(time.RFC3339)
		}
		record := []string{
			inv.ID,
			inv.ClientName,
			inv.InvoiceDate,
			strconv.FormatFloat(inv.Amount, 'f', 2, 64),
			inv.CurrencyType,
			string(inv.Status),
			inv.DueDate,
			created,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: failed to write CSV row for %s: %w", inv.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// InvoiceFilename is the download name for a single-invoice export.
func InvoiceFilename(invoiceID string) string {
	return invoiceID + ".csv"
}

// BulkFilename is the download name for a bulk export, stamped with
// the export date.
func BulkFilename(user string, at time.Time) string {
	return fmt.Sprintf("%s_%s.csv", user, at.Format("2006-01-02"))
}
