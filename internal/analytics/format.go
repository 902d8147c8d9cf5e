package analytics

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders an amount in the backend-declared currency for
// that number. The same input always yields the same string. Unknown
// or empty codes do not fail the render: empty falls back to USD
// (matching the backend's treatment of missing currency), anything
// else is prefixed verbatim.
func FormatAmount(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", code, amount)
	}
	return printer.Sprint(currency.NarrowSymbol(unit.Amount(amount)))
}
