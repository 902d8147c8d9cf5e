package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"billow/internal/analytics"
	"billow/internal/logger"
	"billow/internal/sync"
	"billow/pkg/models"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the dashboard: KPI cards, revenue chart, top clients, recent invoices",
	Long: `Render the Billow dashboard as text: the four KPI cards, the monthly
revenue series, the top-client ranking, and the most recent invoices.

Each section is fetched independently; a failed section renders an
empty state with a retry hint and the rest of the dashboard still
shows.`,
	Example: `  # Default dashboard
  billow dashboard

  # More recent invoices
  billow dashboard --limit 10`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().Int("limit", 5, "Number of recent invoices to show")
	dashboardCmd.Flags().Int("top", 5, "Number of top clients to show")
}

// fixedParams is the parameter tuple for endpoints that take none.
type fixedParams string

func (p fixedParams) Key() string { return string(p) }

func runDashboard(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("dashboard")

	limit, _ := cmd.Flags().GetInt("limit")
	top, _ := cmd.Flags().GetInt("top")

	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// Each section is its own cache entry, refreshed on "mount" and
	// torn down when the command exits.
	kpiEntry := sync.NewEntry(func(ctx context.Context, _ fixedParams) (*models.KPI, error) {
		return client.KPI(ctx)
	})
	chartEntry := sync.NewEntry(func(ctx context.Context, _ fixedParams) ([]models.RevenuePoint, error) {
		return client.RevenueChart(ctx)
	})
	topEntry := sync.NewEntry(func(ctx context.Context, _ fixedParams) ([]models.TopClient, error) {
		return client.TopClients(ctx)
	})
	recentEntry := sync.NewEntry(func(ctx context.Context, _ fixedParams) ([]models.Invoice, error) {
		return client.RecentInvoices(ctx, limit)
	})
	defer kpiEntry.Close()
	defer chartEntry.Close()
	defer topEntry.Close()
	defer recentEntry.Close()

	kpiEntry.Refresh(ctx, "dashboard/kpi")
	chartEntry.Refresh(ctx, "dashboard/revenue-chart")
	topEntry.Refresh(ctx, "dashboard/top-clients")
	recentEntry.Refresh(ctx, "dashboard/recent-invoices")

	kpiSnap, err := kpiEntry.Settled(ctx)
	if err != nil {
		return err
	}
	chartSnap, err := chartEntry.Settled(ctx)
	if err != nil {
		return err
	}
	topSnap, err := topEntry.Settled(ctx)
	if err != nil {
		return err
	}
	recentSnap, err := recentEntry.Settled(ctx)
	if err != nil {
		return err
	}

	if kpiSnap.State == sync.StateReady {
		printKPICards(analytics.KPICards(*kpiSnap.Data, nil))
	} else {
		log.Warn().Err(kpiSnap.Err).Msg("KPI fetch failed")
		fmt.Printf("KPI data unavailable. %s\n", retryHint(kpiSnap.Err))
	}

	fmt.Println()
	if chartSnap.State == sync.StateReady {
		printRevenueChart(chartSnap.Data)
	} else {
		log.Warn().Err(chartSnap.Err).Msg("Revenue chart fetch failed")
		fmt.Printf("Revenue chart unavailable. %s\n", retryHint(chartSnap.Err))
	}

	fmt.Println()
	if topSnap.State == sync.StateReady {
		printTopClients(analytics.TopClients(topSnap.Data, top))
	} else {
		log.Warn().Err(topSnap.Err).Msg("Top clients fetch failed")
		fmt.Printf("Top clients unavailable. %s\n", retryHint(topSnap.Err))
	}

	fmt.Println()
	if recentSnap.State == sync.StateReady {
		printInvoiceTable("Recent Invoices", recentSnap.Data)
	} else {
		log.Warn().Err(recentSnap.Err).Msg("Recent invoices fetch failed")
		fmt.Printf("Recent invoices unavailable. %s\n", retryHint(recentSnap.Err))
	}

	return nil
}

func printKPICards(cards []analytics.Card) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, card := range cards {
		if card.Change == "" {
			fmt.Fprintf(w, "%s\t%s\t\n", card.Title, card.Value)
			continue
		}
		arrow := "↑"
		if !card.Positive {
			arrow = "↓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\n", card.Title, card.Value, arrow, card.Change)
	}
	w.Flush()
}

// printRevenueChart renders the series as a simple horizontal bar
// chart. Order is chronological as received; never resorted.
func printRevenueChart(series []models.RevenuePoint) {
	fmt.Println("Revenue (last 12 months)")
	var max float64
	for _, p := range series {
		if p.Revenue > max {
			max = p.Revenue
		}
	}
	for _, p := range series {
		width := 0
		if max > 0 {
			width = int(p.Revenue / max * 40)
		}
		fmt.Printf("  %-4s %10.2f %s\n", p.Month, p.Revenue, strings.Repeat("█", width))
	}
}

func printTopClients(clients []models.TopClient) {
	fmt.Println("Top Clients")
	if len(clients) == 0 {
		fmt.Println("  No clients yet.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, c := range clients {
		fmt.Fprintf(w, "  %d.\t%s\t%.2f\n", i+1, c.Name, c.Revenue)
	}
	w.Flush()
}

func printInvoiceTable(title string, invoices []models.Invoice) {
	fmt.Println(title)
	if len(invoices) == 0 {
		fmt.Println("  No invoices found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tClient\tDate\tAmount\tStatus\tDue")
	for _, inv := range invoices {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			inv.ID,
			inv.ClientName,
			inv.InvoiceDate,
			analytics.FormatAmount(inv.Amount, inv.CurrencyType),
			inv.Status,
			inv.DueDate)
	}
	w.Flush()
}
