package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"billow/internal/api"
	"billow/internal/logger"
	"billow/internal/sync"
	"billow/pkg/models"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List, create and update invoices",
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices, filterable by search text, status, currency, dates and amounts",
	Long: `Fetch the invoice collection filtered by the given parameter tuple.

With --interactive, search text is read line by line from stdin and
queries are debounced the way the web search box debounces
keystrokes: the first input fires immediately, later inputs are
collapsed until typing pauses.`,
	Example: `  # All invoices
  billow invoices list

  # Overdue EUR invoices over 500
  billow invoices list --status overdue --currency EUR --amount-min 500

  # Type-to-search
  billow invoices list --interactive`,
	RunE: runInvoicesList,
}

var invoicesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an invoice",
	Long: `Create an invoice for an existing client. Required fields are
validated locally before any network call; the list is refetched
after a successful create so the output reflects the new invoice.`,
	Example: `  billow invoices create --client-id CLI-20240101-120000 \
    --amount 1500 --currency EUR --invoice-date 2026-08-01 --due-date 2026-09-01`,
	RunE: runInvoicesCreate,
}

var invoicesUpdateCmd = &cobra.Command{
	Use:   "update [invoice-id]",
	Short: "Update an invoice",
	Long: `Replace an invoice's fields. The payload is validated locally the
same way create is, and the list is refetched after a successful
update.`,
	Example: `  billow invoices update INV-20240101-120000-000001 --status paid \
    --client-id CLI-20240101-120000 --amount 1500 --currency EUR \
    --invoice-date 2026-08-01 --due-date 2026-09-01`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoicesUpdate,
}

func init() {
	rootCmd.AddCommand(invoicesCmd)
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesCreateCmd)
	invoicesCmd.AddCommand(invoicesUpdateCmd)

	invoicesListCmd.Flags().String("search", "", "Search text (invoice id or client name)")
	invoicesListCmd.Flags().String("status", "", "Status filter (unpaid|paid|overdue|processing)")
	invoicesListCmd.Flags().String("currency", "", "Currency code filter")
	invoicesListCmd.Flags().String("date-from", "", "Invoice date lower bound (YYYY-MM-DD)")
	invoicesListCmd.Flags().String("date-to", "", "Invoice date upper bound (YYYY-MM-DD)")
	invoicesListCmd.Flags().Float64("amount-min", 0, "Amount lower bound")
	invoicesListCmd.Flags().Float64("amount-max", 0, "Amount upper bound")
	invoicesListCmd.Flags().Int("limit", 0, "Maximum rows to fetch")
	invoicesListCmd.Flags().Bool("interactive", false, "Read search input from stdin with debounced queries")

	for _, c := range []*cobra.Command{invoicesCreateCmd, invoicesUpdateCmd} {
		c.Flags().String("client-id", "", "Client the invoice belongs to")
		c.Flags().Float64("amount", 0, "Invoice amount")
		c.Flags().String("currency", "USD", "Currency code")
		c.Flags().String("status", "unpaid", "Invoice status")
		c.Flags().String("invoice-date", "", "Invoice date (YYYY-MM-DD)")
		c.Flags().String("due-date", "", "Due date (YYYY-MM-DD)")
	}
}

func invoiceQueryFromFlags(cmd *cobra.Command) models.InvoiceQuery {
	search, _ := cmd.Flags().GetString("search")
	status, _ := cmd.Flags().GetString("status")
	currency, _ := cmd.Flags().GetString("currency")
	dateFrom, _ := cmd.Flags().GetString("date-from")
	dateTo, _ := cmd.Flags().GetString("date-to")
	amountMin, _ := cmd.Flags().GetFloat64("amount-min")
	amountMax, _ := cmd.Flags().GetFloat64("amount-max")
	limit, _ := cmd.Flags().GetInt("limit")

	return models.InvoiceQuery{
		Search:    search,
		Status:    models.InvoiceStatus(status),
		Currency:  currency,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		AmountMin: amountMin,
		AmountMax: amountMax,
		Limit:     limit,
	}
}

func runInvoicesList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoices")

	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	entry := sync.NewEntry(func(ctx context.Context, q models.InvoiceQuery) ([]models.Invoice, error) {
		return client.ListInvoices(ctx, q)
	})

	interactive, _ := cmd.Flags().GetBool("interactive")
	if interactive {
		return runInvoiceSearch(ctx, os.Stdin, entry, invoiceQueryFromFlags(cmd))
	}
	defer entry.Close()

	query := invoiceQueryFromFlags(cmd)
	entry.Refresh(ctx, query)
	snap, err := entry.Settled(ctx)
	if err != nil {
		return err
	}
	if snap.State == sync.StateFailed {
		log.Warn().Err(snap.Err).Msg("Invoice list fetch failed")
		fmt.Printf("No invoices to show. %s\n", retryHint(snap.Err))
		return snap.Err
	}

	printInvoiceTable("Invoices", snap.Data)
	return nil
}

// runInvoiceSearch drives the debounced query controller from in, one
// search term per line. An empty line clears the search; ":retry"
// re-issues the last tuple without changing it, which is the recovery
// action for a failed refresh.
func runInvoiceSearch(ctx context.Context, in io.Reader, entry *sync.Entry[models.InvoiceQuery, []models.Invoice], base models.InvoiceQuery) error {
	ctrl := sync.NewController(ctx, entry, sync.DefaultDebounceWindow)
	defer ctrl.Close()

	// Initial load fires immediately.
	ctrl.Set(base)
	if err := renderSearchResults(ctx, ctrl); err != nil {
		return err
	}

	fmt.Println("Type to search, empty line to clear, :retry to refetch, Ctrl-D to quit.")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == ":retry" {
			ctrl.Entry().Retry(ctx)
			if err := renderSearchResults(ctx, ctrl); err != nil {
				return err
			}
			continue
		}

		q := base
		q.Search = line
		ctrl.Set(q)

		// Give the debounce window a chance to elapse before
		// rendering, so a burst of pasted lines collapses into one
		// query the same way keystrokes would.
		time.Sleep(sync.DefaultDebounceWindow + 50*time.Millisecond)
		if err := renderSearchResults(ctx, ctrl); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func renderSearchResults(ctx context.Context, ctrl *sync.Controller[models.InvoiceQuery, []models.Invoice]) error {
	snap, err := ctrl.Settled(ctx)
	if err != nil {
		return err
	}
	switch {
	case snap.State == sync.StateFailed && !snap.HasData:
		fmt.Printf("No invoices to show. %s\n", retryHint(snap.Err))
	case snap.State == sync.StateFailed:
		// Stale-while-revalidate: keep showing the last good data.
		fmt.Printf("Refresh failed, showing previous results. %s\n", retryHint(snap.Err))
		printInvoiceTable("Invoices", snap.Data)
	default:
		printInvoiceTable("Invoices", snap.Data)
	}
	return nil
}

func invoiceRequestFromFlags(cmd *cobra.Command) models.CreateInvoiceRequest {
	clientID, _ := cmd.Flags().GetString("client-id")
	amount, _ := cmd.Flags().GetFloat64("amount")
	currency, _ := cmd.Flags().GetString("currency")
	status, _ := cmd.Flags().GetString("status")
	invoiceDate, _ := cmd.Flags().GetString("invoice-date")
	dueDate, _ := cmd.Flags().GetString("due-date")

	return models.CreateInvoiceRequest{
		ClientID:     clientID,
		Amount:       amount,
		CurrencyType: currency,
		Status:       status,
		InvoiceDate:  invoiceDate,
		DueDate:      dueDate,
	}
}

func runInvoicesCreate(cmd *cobra.Command, args []string) error {
	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}
	return submitInvoice(cmd, client, "created", func(ctx context.Context, req models.CreateInvoiceRequest) error {
		_, err := client.CreateInvoice(ctx, req)
		return err
	})
}

func runInvoicesUpdate(cmd *cobra.Command, args []string) error {
	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}
	id := args[0]
	return submitInvoice(cmd, client, "updated", func(ctx context.Context, req models.CreateInvoiceRequest) error {
		_, err := client.UpdateInvoice(ctx, id, req)
		return err
	})
}

// submitInvoice runs an invoice mutation through the coordinator:
// local validation, the write, then a refetch of the list so the
// printed table already includes the change.
func submitInvoice(cmd *cobra.Command, client *api.Client, verb string, submit sync.SubmitFunc[models.CreateInvoiceRequest]) error {
	log := logger.WithComponent("invoices")

	ctx := cmd.Context()
	entry := sync.NewEntry(func(ctx context.Context, q models.InvoiceQuery) ([]models.Invoice, error) {
		return client.ListInvoices(ctx, q)
	})
	defer entry.Close()

	coordinator := sync.NewCoordinator(submit, entry)
	if err := coordinator.Submit(ctx, invoiceRequestFromFlags(cmd), models.InvoiceQuery{}); err != nil {
		var verr *sync.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
			}
			return fmt.Errorf("invoice not submitted: fix the fields above")
		}
		log.Error().Err(err).Str("action", verb).Msg("Invoice mutation failed")
		return fmt.Errorf("invoice mutation failed: %w (%s)", err, retryHint(err))
	}

	snap := entry.Snapshot()
	fmt.Printf("Invoice %s. The list now has %d invoices.\n", verb, len(snap.Data))
	printInvoiceTable("Invoices", snap.Data)
	return nil
}
