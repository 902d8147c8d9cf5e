package models

import (
	"net/url"
	"time"
)

// Client carries the backend-computed aggregate financial fields.
// The core never recomputes them; total_paid <= total_invoiced is
// assumed, not enforced here.
type Client struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Company        string    `json:"company,omitempty"`
	Address        string    `json:"address,omitempty"`
	TotalInvoiced  float64   `json:"total_invoiced"`
	TotalPaid      float64   `json:"total_paid"`
	InvoiceCount   int       `json:"invoice_count"`
	AverageInvoice float64   `json:"average_invoice"`
	PaymentDelay   int       `json:"payment_delay"`
	Avatar         string    `json:"avatar,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// CreateClientRequest is the mutation payload for POST /clients.
type CreateClientRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty" validate:"omitempty"`
	Company string `json:"company,omitempty" validate:"omitempty"`
	Address string `json:"address,omitempty" validate:"omitempty"`
}

// ClientQuery is the parameter tuple for the client collection.
type ClientQuery struct {
	Search string
}

func (q ClientQuery) Key() string {
	return "clients|" + q.Search
}

func (q ClientQuery) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// ClientRevenue is the per-client revenue series from
// GET /clients/{id}/revenue-data. RevenueData order is significant.
type ClientRevenue struct {
	ClientID    string    `json:"client_id"`
	Months      int       `json:"months"`
	RevenueData []float64 `json:"revenue_data"`
}
