package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"billow/internal/api"
	"billow/internal/config"
	"billow/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "billow",
	Short: "Billow CLI - invoicing analytics from the command line",
	Long: `Billow CLI talks to a Billow backend and renders the same views the
web dashboard does: KPI cards, invoices, clients, and reports, plus
CSV and Google Sheets exports.

Required environment variables:
  BILLOW_API_BASE_URL - Base URL of the Billow backend
  BILLOW_USER_ID      - Current user id, attached to every request

Optional:
  BILLOW_API_TIMEOUT     - Per-request timeout in seconds (default 10)
  GOOGLE_SHEET_URL       - Target spreadsheet for report exports
  GOOGLE_SHEET_WORKSHEET - Worksheet name (default Invoice_Report)`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Billow CLI executed")

		fmt.Println("Welcome to Billow CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

// newResourceClient builds the resource client for an authenticated
// command. Commands that need the current user id fail fast here
// instead of sending requests the backend will reject.
func newResourceClient(requireUser bool) (*api.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if requireUser && cfg.UserID == "" {
		return nil, nil, fmt.Errorf("BILLOW_USER_ID is required for this command: %w", api.ErrMissingUserID)
	}
	client := api.NewClient(cfg.APIBaseURL, cfg.UserID, api.WithTimeout(cfg.APITimeout))
	return client, cfg, nil
}

// retryHint phrases the retry affordance for a failed fetch. List
// views degrade to an empty state plus this hint, never a bare crash.
func retryHint(err error) string {
	if api.IsRetryable(err) {
		return "The request can be retried; run the command again."
	}
	if api.KindOf(err) == api.KindAuth {
		return "Check BILLOW_USER_ID and sign in again with 'billow login'."
	}
	return "This looks like a contract mismatch; check the backend version."
}
