// Package models holds the entity shapes exchanged with the Billow
// backend. The backend owns every entity; these are transient,
// read-mostly copies scoped to a single command's lifetime. Dates on
// the invoice wire format are plain YYYY-MM-DD strings, matching the
// backend's storage.
package models

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// InvoiceStatus is backend-owned; the client renders it but never
// infers or transitions it.
type InvoiceStatus string

const (
	StatusUnpaid     InvoiceStatus = "unpaid"
	StatusPaid       InvoiceStatus = "paid"
	StatusOverdue    InvoiceStatus = "overdue"
	StatusProcessing InvoiceStatus = "processing"
)

type Invoice struct {
	ID           string        `json:"id"`
	ClientID     string        `json:"client_id"`
	ClientName   string        `json:"client_name"`
	InvoiceDate  string        `json:"invoice_date"`
	Amount       float64       `json:"amount"`
	CurrencyType string        `json:"currency_type"`
	Status       InvoiceStatus `json:"status"`
	DueDate      string        `json:"due_date"`
	CreatedAt    time.Time     `json:"created_at,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at,omitempty"`
}

// CreateInvoiceRequest is the mutation payload for POST /invoices.
// The validate tags drive the mutation coordinator's local checks;
// invalid payloads never reach the network.
type CreateInvoiceRequest struct {
	ClientID     string  `json:"client_id" validate:"required"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	CurrencyType string  `json:"currency_type" validate:"required,len=3"`
	Status       string  `json:"status" validate:"omitempty,oneof=unpaid paid overdue processing"`
	InvoiceDate  string  `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	DueDate      string  `json:"due_date" validate:"required,datetime=2006-01-02"`
}

// InvoiceQuery is the parameter tuple that selects a sub-view of the
// invoice collection. Two queries with the same Key are
// cache-equivalent. Zero values mean "unset": amounts are
// non-negative, so a zero bound never excludes anything.
type InvoiceQuery struct {
	Search    string
	Status    InvoiceStatus
	Currency  string
	DateFrom  string
	DateTo    string
	AmountMin float64
	AmountMax float64
	Limit     int
}

// Key returns the canonical identity of the tuple.
func (q InvoiceQuery) Key() string {
	return strings.Join([]string{
		"invoices",
		q.Search,
		string(q.Status),
		q.Currency,
		q.DateFrom,
		q.DateTo,
		strconv.FormatFloat(q.AmountMin, 'f', -1, 64),
		strconv.FormatFloat(q.AmountMax, 'f', -1, 64),
		strconv.Itoa(q.Limit),
	}, "|")
}

// Values encodes the tuple as request query parameters, omitting
// unset fields.
func (q InvoiceQuery) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Currency != "" {
		v.Set("currency", q.Currency)
	}
	if q.DateFrom != "" {
		v.Set("date_from", q.DateFrom)
	}
	if q.DateTo != "" {
		v.Set("date_to", q.DateTo)
	}
	if q.AmountMin > 0 {
		v.Set("amount_min", strconv.FormatFloat(q.AmountMin, 'f', -1, 64))
	}
	if q.AmountMax > 0 {
		v.Set("amount_max", strconv.FormatFloat(q.AmountMax, 'f', -1, 64))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}
