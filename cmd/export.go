package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"billow/internal/export"
	"billow/internal/logger"
	"billow/internal/sync"
	"billow/pkg/models"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export invoices as CSV or push a report to Google Sheets",
	Long: `Export already-fetched invoice data. By default all invoices are
written to {user}_{date}.csv; --invoice exports a single invoice to
{id}.csv. --sheet appends the rows to the configured Google Sheet
instead of writing a file.

Google Sheets export needs GOOGLE_SHEET_URL plus either
GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Example: `  # Bulk export to ./<user>_<date>.csv
  billow export

  # One invoice to stdout
  billow export --invoice INV-20240101-120000-000001 -o -

  # Push the current report rows to Google Sheets
  billow export --sheet`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("invoice", "", "Export a single invoice by id")
	exportCmd.Flags().StringP("output", "o", "", "Output path ('-' for stdout; default derived filename)")
	exportCmd.Flags().Bool("sheet", false, "Append to the configured Google Sheet instead of writing CSV")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	client, cfg, err := newResourceClient(true)
	if err != nil {
		return err
	}

	invoiceID, _ := cmd.Flags().GetString("invoice")
	outputPath, _ := cmd.Flags().GetString("output")
	toSheet, _ := cmd.Flags().GetBool("sheet")

	ctx := cmd.Context()

	var invoices []models.Invoice
	if invoiceID != "" {
		inv, err := client.GetInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("invoice fetch failed: %w (%s)", err, retryHint(err))
		}
		invoices = []models.Invoice{*inv}
	} else {
		entry := sync.NewEntry(func(ctx context.Context, q models.InvoiceQuery) ([]models.Invoice, error) {
			return client.ListInvoices(ctx, q)
		})
		defer entry.Close()

		entry.Refresh(ctx, models.InvoiceQuery{})
		snap, err := entry.Settled(ctx)
		if err != nil {
			return err
		}
		if snap.State == sync.StateFailed {
			return fmt.Errorf("invoice list fetch failed: %w (%s)", snap.Err, retryHint(snap.Err))
		}
		invoices = snap.Data
	}

	if toSheet {
		if cfg.GoogleSheetURL == "" {
			return fmt.Errorf("GOOGLE_SHEET_URL is required for sheet export")
		}
		service, err := export.NewSheetService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return err
		}
		if err := service.AppendInvoiceReport(ctx, invoices, cfg.GoogleSheetWorksheet); err != nil {
			return err
		}
		fmt.Printf("Appended %d rows to worksheet %q.\n", len(invoices), cfg.GoogleSheetWorksheet)
		return nil
	}

	if outputPath == "" {
		if invoiceID != "" {
			outputPath = export.InvoiceFilename(invoiceID)
		} else {
			outputPath = export.BulkFilename(cfg.UserID, time.Now())
		}
	}

	if outputPath == "-" {
		return export.WriteInvoicesCSV(os.Stdout, invoices)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := export.WriteInvoicesCSV(f, invoices); err != nil {
		return err
	}

	log.Info().
		Str("path", outputPath).
		Int("rows", len(invoices)).
		Msg("CSV export written")
	fmt.Printf("Wrote %d invoices to %s.\n", len(invoices), outputPath)
	return nil
}
