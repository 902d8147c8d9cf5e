package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"billow/internal/analytics"
	"billow/internal/api"
	"billow/internal/logger"
	"billow/internal/sync"
	"billow/pkg/models"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show the reports summary and per-client revenue breakdown",
	Long: `Render the reports page: the backend's aggregate summary plus a
per-client revenue lookup. A failed per-client lookup degrades to a
zero series with a logged warning; it never takes down the whole
report.`,
	Example: `  billow reports
  billow reports --months 12`,
	RunE: runReports,
}

func init() {
	rootCmd.AddCommand(reportsCmd)

	reportsCmd.Flags().Int("months", 7, "Months per client revenue series")
}

func runReports(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reports")

	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}

	months, _ := cmd.Flags().GetInt("months")
	ctx := cmd.Context()

	summaryEntry := sync.NewEntry(func(ctx context.Context, _ fixedParams) (*models.ReportsSummary, error) {
		return client.ReportsSummary(ctx)
	})
	clientsEntry := sync.NewEntry(func(ctx context.Context, q models.ClientQuery) ([]models.Client, error) {
		return client.ListClients(ctx, q)
	})
	defer summaryEntry.Close()
	defer clientsEntry.Close()

	summaryEntry.Refresh(ctx, "dashboard/reports-summary")
	clientsEntry.Refresh(ctx, models.ClientQuery{})

	summarySnap, err := summaryEntry.Settled(ctx)
	if err != nil {
		return err
	}
	clientsSnap, err := clientsEntry.Settled(ctx)
	if err != nil {
		return err
	}

	if summarySnap.State == sync.StateReady {
		printReportsSummary(*summarySnap.Data)
	} else {
		// The granular dashboard endpoints predate the combined
		// summary; fall back to them so an older backend still
		// renders a partial report.
		log.Warn().Err(summarySnap.Err).Msg("Reports summary fetch failed, trying granular endpoints")
		if !printGranularSummary(ctx, client) {
			fmt.Printf("Reports summary unavailable. %s\n", retryHint(summarySnap.Err))
		}
	}

	if clientsSnap.State != sync.StateReady {
		log.Warn().Err(clientsSnap.Err).Msg("Client list fetch failed")
		fmt.Printf("Per-client breakdown unavailable. %s\n", retryHint(clientsSnap.Err))
		return nil
	}

	// Partial failure policy: a client whose revenue lookup fails
	// gets a zero series, and the rest of the view still renders.
	fmt.Println()
	fmt.Printf("Per-client revenue (last %d months)\n", months)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, c := range clientsSnap.Data {
		series := make([]float64, months)
		revenue, err := client.ClientRevenue(ctx, c.ID, months)
		if err != nil {
			log.Warn().
				Err(err).
				Str("client_id", c.ID).
				Msg("Client revenue lookup failed, using zero series")
		} else {
			copy(series, revenue.RevenueData)
		}

		var total float64
		for _, v := range series {
			total += v
		}
		fmt.Fprintf(w, "  %s\t%s\ttotal %.2f\n", c.Name, sparkline(series), total)
	}
	w.Flush()

	return nil
}

func printReportsSummary(s models.ReportsSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total Revenue\t%s\n", analytics.FormatAmount(s.TotalRevenue, s.PrimaryCurrency))
	fmt.Fprintf(w, "Collection Rate\t%.1f%%\n", s.CollectionRate)
	fmt.Fprintf(w, "Top Client\t%s (%s)\n", s.TopClient, analytics.FormatAmount(s.TopClientRevenue, s.PrimaryCurrency))
	fmt.Fprintf(w, "Top Revenue Month\t%s\n", s.TopRevenueMonth)
	fmt.Fprintf(w, "Clients\t%d\n", s.ClientCount)
	fmt.Fprintf(w, "Average per Client\t%s\n", analytics.FormatAmount(s.AveragePerClient, s.PrimaryCurrency))
	w.Flush()
}

// printGranularSummary assembles a partial summary from the
// single-value dashboard endpoints. Returns false if nothing could be
// fetched.
func printGranularSummary(ctx context.Context, client *api.Client) bool {
	currency, err := client.PrimaryCurrency(ctx)
	if err != nil {
		currency = ""
	}

	printed := false
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if rate, err := client.CollectionRate(ctx); err == nil {
		fmt.Fprintf(w, "Total Revenue\t%s\n", analytics.FormatAmount(rate.TotalPaid, currency))
		fmt.Fprintf(w, "Collection Rate\t%.1f%%\n", rate.CollectionRate)
		fmt.Fprintf(w, "Total Invoiced\t%s\n", analytics.FormatAmount(rate.TotalInvoiced, currency))
		printed = true
	}
	if month, err := client.TopRevenueMonth(ctx); err == nil {
		fmt.Fprintf(w, "Top Revenue Month\t%s (%s)\n", month.TopMonth, analytics.FormatAmount(month.TopMonthRevenue, currency))
		printed = true
	}
	if printed {
		w.Flush()
	}
	return printed
}

// sparkline renders a numeric series as block characters, zero-height
// for missing data.
func sparkline(series []float64) string {
	blocks := []rune(" ▁▂▃▄▅▆▇█")
	var max float64
	for _, v := range series {
		if v > max {
			max = v
		}
	}
	out := make([]rune, len(series))
	for i, v := range series {
		idx := 0
		if max > 0 {
			idx = int(v / max * float64(len(blocks)-1))
		}
		out[i] = blocks[idx]
	}
	return string(out)
}
