package export

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"billow/internal/logger"
	"billow/pkg/models"
)

// SheetService pushes invoice report rows to a Google Sheet.
type SheetService struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// sheetHeader matches the CSV export columns plus an export
// timestamp, so the sheet and the file exports stay comparable.
var sheetHeader = []any{
	"Invoice ID", "Client", "Invoice Date", "Amount",
	"Currency", "Status", "Due Date", "Created At", "Exported At",
}

// NewSheetService creates a Sheets client from the Google credentials
// in the environment (GOOGLE_APPLICATION_CREDENTIALS file path or
// inline GOOGLE_CREDENTIALS JSON) bound to the spreadsheet in
// sheetURL.
func NewSheetService(ctx context.Context, sheetURL string) (*SheetService, error) {
	const op = "NewSheetService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	client := config.Client(ctx)
	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &SheetService{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google
// Sheets URL.
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// AppendInvoiceReport appends one row per invoice to the named
// worksheet, creating the sheet and its header row first when
// missing.
func (s *SheetService) AppendInvoiceReport(ctx context.Context, invoices []models.Invoice, sheetName string) error {
	const op = "AppendInvoiceReport"

	s.log.Info().
		Str("sheet", sheetName).
		Int("rows", len(invoices)).
		Msg("Writing invoice report to Google Sheet")

	if err := s.ensureSheetWithHeader(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	exportedAt := time.Now().Format("2006-01-02 15:04:05")
	var values [][]any
	for _, inv := range invoices {
		created := ""
		if !inv.CreatedAt.IsZero() {
			created = inv.CreatedAt.Format(time.RFC3339)
		}
		values = append(values, []any{
			inv.ID,
			inv.ClientName,
			inv.InvoiceDate,
			inv.Amount,
			inv.CurrencyType,
			string(inv.Status),
			inv.DueDate,
			created,
			exportedAt,
		})
	}

	valueRange := &sheets.ValueRange{Values: values}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		sheetName+"!A:I",
		valueRange,
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote invoice report to Google Sheet")

	return nil
}

// ensureSheetWithHeader creates the worksheet if absent and writes
// the header row when the sheet is empty.
func (s *SheetService) ensureSheetWithHeader(ctx context.Context, sheetName string) error {
	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	exists := false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			exists = true
			break
		}
	}

	if !exists {
		s.log.Debug().Str("sheet", sheetName).Msg("Creating missing worksheet")
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: sheetName},
				},
			}},
		}
		if _, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheetName, err)
		}
	}

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, sheetName+"!A1:I1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	if len(resp.Values) == 0 {
		header := &sheets.ValueRange{Values: [][]any{sheetHeader}}
		_, err := s.sheetsService.Spreadsheets.Values.Update(
			s.spreadsheetID,
			sheetName+"!A1:I1",
			header,
		).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to write header row: %w", err)
		}
	}

	return nil
}
