package cmd

import (
	"context"
	"errors"
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

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List, create and update clients",
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients with their backend-computed financials",
	Example: `  billow clients list
  billow clients list --search acme`,
	RunE: runClientsList,
}

var clientsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a client",
	Long: `Create a client record. Name and a valid email are required and are
checked locally before any network call; the client list is refetched
after a successful create.`,
	Example: `  billow clients create --name "Acme Corp" --email billing@acme.com`,
	RunE: runClientsCreate,
}

var clientsUpdateCmd = &cobra.Command{
	Use:   "update [client-id]",
	Short: "Update a client",
	Long: `Replace a client's contact fields. The payload is validated locally
the same way create is; financial fields stay backend-computed and
cannot be set here.`,
	Example: `  billow clients update CLI-20240101-120000 --name "Acme Corp" \
    --email billing@acme.com --phone "+1 555 0100"`,
	Args: cobra.ExactArgs(1),
	RunE: runClientsUpdate,
}

var clientsRevenueCmd = &cobra.Command{
	Use:   "revenue [client-id]",
	Short: "Show a client's revenue series",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientsRevenue,
}

func init() {
	rootCmd.AddCommand(clientsCmd)
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsCreateCmd)
	clientsCmd.AddCommand(clientsUpdateCmd)
	clientsCmd.AddCommand(clientsRevenueCmd)

	clientsListCmd.Flags().String("search", "", "Search text (name or email)")

	for _, c := range []*cobra.Command{clientsCreateCmd, clientsUpdateCmd} {
		c.Flags().String("name", "", "Client name")
		c.Flags().String("email", "", "Client email")
		c.Flags().String("phone", "", "Client phone")
		c.Flags().String("company", "", "Client company")
		c.Flags().String("address", "", "Client address")
	}

	clientsRevenueCmd.Flags().Int("months", 7, "Number of months in the series")
}

func runClientsList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("clients")

	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}

	search, _ := cmd.Flags().GetString("search")

	ctx := cmd.Context()
	entry := sync.NewEntry(func(ctx context.Context, q models.ClientQuery) ([]models.Client, error) {
		return client.ListClients(ctx, q)
	})
	defer entry.Close()

	entry.Refresh(ctx, models.ClientQuery{Search: search})
	snap, err := entry.Settled(ctx)
	if err != nil {
		return err
	}
	if snap.State == sync.StateFailed {
		log.Warn().Err(snap.Err).Msg("Client list fetch failed")
		fmt.Printf("No clients to show. %s\n", retryHint(snap.Err))
		return snap.Err
	}

	printClientTable(snap.Data)
	return nil
}

func printClientTable(clients []models.Client) {
	fmt.Println("Clients")
	if len(clients) == 0 {
		fmt.Println("  No clients found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tName\tEmail\tInvoiced\tPaid\tPaid %\tInvoices\tAvg")
	for _, c := range clients {
		// Display-only rate; every other financial field is
		// backend-computed and shown as received.
		rate := analytics.PaymentRate(c.TotalInvoiced, c.TotalPaid)
		fmt.Fprintf(w, "  %s\t%s\t%s\t%.2f\t%.2f\t%d%%\t%d\t%.2f\n",
			c.ID, c.Name, c.Email,
			c.TotalInvoiced, c.TotalPaid, rate,
			c.InvoiceCount, c.AverageInvoice)
	}
	w.Flush()
}

func clientRequestFromFlags(cmd *cobra.Command) models.CreateClientRequest {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")
	company, _ := cmd.Flags().GetString("company")
	address, _ := cmd.Flags().GetString("address")

	return models.CreateClientRequest{
		Name:    name,
		Email:   email,
		Phone:   phone,
		Company: company,
		Address: address,
	}
}

func runClientsCreate(cmd *cobra.Command, args []string) error {
	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}
	return submitClient(cmd, client, "created", func(ctx context.Context, req models.CreateClientRequest) error {
		_, err := client.CreateClient(ctx, req)
		return err
	})
}

func runClientsUpdate(cmd *cobra.Command, args []string) error {
	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}
	id := args[0]
	return submitClient(cmd, client, "updated", func(ctx context.Context, req models.CreateClientRequest) error {
		_, err := client.UpdateClient(ctx, id, req)
		return err
	})
}

func submitClient(cmd *cobra.Command, client *api.Client, verb string, submit sync.SubmitFunc[models.CreateClientRequest]) error {
	log := logger.WithComponent("clients")

	ctx := cmd.Context()
	entry := sync.NewEntry(func(ctx context.Context, q models.ClientQuery) ([]models.Client, error) {
		return client.ListClients(ctx, q)
	})
	defer entry.Close()

	coordinator := sync.NewCoordinator(submit, entry)
	if err := coordinator.Submit(ctx, clientRequestFromFlags(cmd), models.ClientQuery{}); err != nil {
		var verr *sync.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
			}
			return fmt.Errorf("client not submitted: fix the fields above")
		}
		log.Error().Err(err).Str("action", verb).Msg("Client mutation failed")
		return fmt.Errorf("client mutation failed: %w (%s)", err, retryHint(err))
	}

	snap := entry.Snapshot()
	fmt.Printf("Client %s. The list now has %d clients.\n", verb, len(snap.Data))
	printClientTable(snap.Data)
	return nil
}

func runClientsRevenue(cmd *cobra.Command, args []string) error {
	client, _, err := newResourceClient(true)
	if err != nil {
		return err
	}

	months, _ := cmd.Flags().GetInt("months")
	clientID := args[0]

	revenue, err := client.ClientRevenue(cmd.Context(), clientID, months)
	if err != nil {
		return fmt.Errorf("revenue fetch failed: %w (%s)", err, retryHint(err))
	}

	fmt.Printf("Revenue for %s (last %d months, newest first)\n", revenue.ClientID, revenue.Months)
	for i, amount := range revenue.RevenueData {
		fmt.Printf("  %2d: %.2f\n", i+1, amount)
	}
	return nil
}
