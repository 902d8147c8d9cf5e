// Package analytics derives dashboard-ready numbers from fetched
// collections. All rules are explicit and reproducible: division by
// zero is defined away, ranking ties keep input order, and money math
// goes through decimals rather than raw float arithmetic. Nothing
// here converts currencies; amounts arrive already normalized by the
// backend and are only formatted.
package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"billow/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// PercentChange formats the relative change from previous to current
// as "+X.X%" or "-X.X%". A zero previous value is defined as "+100%"
// when current is positive and "0%" otherwise, so there is never a
// division by zero. A zero change is "0%".
func PercentChange(previous, current float64) string {
	prev := decimal.NewFromFloat(previous)
	cur := decimal.NewFromFloat(current)

	if prev.IsZero() {
		if cur.IsPositive() {
			return "+100%"
		}
		return "0%"
	}

	change := cur.Sub(prev).Div(prev).Mul(hundred).Round(1)
	if change.IsZero() {
		return "0%"
	}
	if change.IsPositive() {
		return "+" + change.StringFixed(1) + "%"
	}
	return change.StringFixed(1) + "%"
}

// CountChange formats an integer delta as "+N", "-N" or "0".
func CountChange(previous, current int64) string {
	delta := current - previous
	switch {
	case delta > 0:
		return fmt.Sprintf("+%d", delta)
	case delta < 0:
		return fmt.Sprintf("%d", delta)
	default:
		return "0"
	}
}

// PaymentRate is paid/invoiced as a whole percentage, rounded to the
// nearest integer. A zero invoiced total yields 0, never NaN.
func PaymentRate(invoiced, paid float64) int {
	inv := decimal.NewFromFloat(invoiced)
	if inv.IsZero() {
		return 0
	}
	rate := decimal.NewFromFloat(paid).Div(inv).Mul(hundred).Round(0)
	return int(rate.IntPart())
}

// TopClients returns the top n entries by revenue, descending. Ties
// keep input order (first seen wins). Fewer than n entries are
// returned as-is, never padded. The input slice is not modified.
func TopClients(entries []models.TopClient, n int) []models.TopClient {
	out := make([]models.TopClient, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue > out[j].Revenue
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Card is one dashboard KPI card.
type Card struct {
	Title    string
	Value    string
	Change   string
	Positive bool
}

// KPICards derives the dashboard cards from the current KPI snapshot
// and, when available, the previous one for the change deltas. With
// no previous snapshot the Change field stays empty; there is no
// baseline, and rendering the zero-previous edge value would read as
// real growth. Amounts are formatted in the snapshot's
// backend-declared primary currency.
func KPICards(current models.KPI, previous *models.KPI) []Card {
	cur := current

	cards := []Card{
		{
			Title:    "Total Invoiced",
			Value:    FormatAmount(cur.TotalInvoiced, cur.PrimaryCurrency),
			Positive: true,
		},
		{
			Title:    "Total Paid",
			Value:    FormatAmount(cur.TotalPaid, cur.PrimaryCurrency),
			Positive: true,
		},
		{
			Title:    "Outstanding",
			Value:    FormatAmount(cur.Outstanding, cur.PrimaryCurrency),
			Positive: true,
		},
		{
			Title:    "Clients",
			Value:    fmt.Sprintf("%d", cur.ClientCount),
			Positive: true,
		},
	}
	if previous == nil {
		return cards
	}

	prev := *previous
	cards[0].Change = PercentChange(prev.TotalInvoiced, cur.TotalInvoiced)
	cards[0].Positive = cur.TotalInvoiced >= prev.TotalInvoiced
	cards[1].Change = PercentChange(prev.TotalPaid, cur.TotalPaid)
	cards[1].Positive = cur.TotalPaid >= prev.TotalPaid
	cards[2].Change = PercentChange(prev.Outstanding, cur.Outstanding)
	cards[2].Positive = cur.Outstanding <= prev.Outstanding
	cards[3].Change = CountChange(prev.ClientCount, cur.ClientCount)
	cards[3].Positive = cur.ClientCount >= prev.ClientCount
	return cards
}
