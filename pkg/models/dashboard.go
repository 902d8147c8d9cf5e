package models

// KPI is a point-in-time aggregate scoped to the current user.
// Amounts are already normalized by the backend into PrimaryCurrency;
// the client only formats them.
type KPI struct {
	TotalInvoiced   float64 `json:"total_invoiced"`
	TotalPaid       float64 `json:"total_paid"`
	Outstanding     float64 `json:"outstanding"`
	ClientCount     int64   `json:"client_count"`
	PrimaryCurrency string  `json:"primary_currency"`
}

// RevenuePoint is one (month label, revenue) pair of the revenue
// series. Chronological order must be preserved for charting.
type RevenuePoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// TopClient is one entry of the top-clients ranking.
type TopClient struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

// ReportsSummary is the aggregate behind the reports page.
type ReportsSummary struct {
	TotalRevenue     float64 `json:"total_revenue"`
	CollectionRate   float64 `json:"collection_rate"`
	TopClient        string  `json:"top_client"`
	TopClientRevenue float64 `json:"top_client_revenue"`
	TopRevenueMonth  string  `json:"top_revenue_month"`
	ClientCount      int64   `json:"client_count"`
	AveragePerClient float64 `json:"average_per_client"`
	PrimaryCurrency  string  `json:"primary_currency"`
}

// CollectionRate mirrors GET /dashboard/collection-rate.
type CollectionRate struct {
	CollectionRate float64 `json:"collection_rate"`
	TotalInvoiced  float64 `json:"total_invoiced"`
	TotalPaid      float64 `json:"total_paid"`
}

// TopRevenueMonth mirrors GET /dashboard/top-revenue-month.
type TopRevenueMonth struct {
	TopMonth        string  `json:"top_month"`
	TopMonthRevenue float64 `json:"top_month_revenue"`
}
