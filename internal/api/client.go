// Package api is the typed resource client for the Billow backend.
//
// Every call attaches the current user identity as the X-User-ID
// header, applies the configured timeout, and normalizes failures
// into the Kind taxonomy in errors.go. The client never retries on
// its own; retry policy belongs to callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"billow/internal/logger"
	"billow/pkg/models"
)

// DefaultTimeout bounds every backend call unless the caller
// configures otherwise.
const DefaultTimeout = 10 * time.Second

// Client is a client for the Billow resource API.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client

	requests atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. The caller is
// responsible for setting a finite timeout on it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a resource client bound to one backend and one
// current user. The user id is explicit rather than ambient so the
// client is testable without a real identity provider.
func NewClient(baseURL, userID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestCount reports how many requests this client has issued.
// Exposed so callers (and tests) can assert that local failures never
// reach the network.
func (c *Client) RequestCount() int64 {
	return c.requests.Load()
}

// ListInvoices fetches the invoice collection filtered by the query
// tuple.
func (c *Client) ListInvoices(ctx context.Context, q models.InvoiceQuery) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := c.do(ctx, "ListInvoices", http.MethodGet, "/api/invoices", q.Values(), nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// GetInvoice fetches a single invoice by id.
func (c *Client) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := c.do(ctx, "GetInvoice", http.MethodGet, "/api/invoices/"+url.PathEscape(id), nil, nil, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CreateInvoice submits a new invoice. The backend assigns the id and
// derived fields; the response is the created record.
func (c *Client) CreateInvoice(ctx context.Context, req models.CreateInvoiceRequest) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := c.do(ctx, "CreateInvoice", http.MethodPost, "/api/invoices", nil, req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateInvoice replaces an existing invoice.
func (c *Client) UpdateInvoice(ctx context.Context, id string, req models.CreateInvoiceRequest) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := c.do(ctx, "UpdateInvoice", http.MethodPut, "/api/invoices/"+url.PathEscape(id), nil, req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListClients fetches the client collection filtered by the query
// tuple.
func (c *Client) ListClients(ctx context.Context, q models.ClientQuery) ([]models.Client, error) {
	var clients []models.Client
	if err := c.do(ctx, "ListClients", http.MethodGet, "/api/clients", q.Values(), nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// CreateClient submits a new client record.
func (c *Client) CreateClient(ctx context.Context, req models.CreateClientRequest) (*models.Client, error) {
	var client models.Client
	if err := c.do(ctx, "CreateClient", http.MethodPost, "/api/clients", nil, req, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// UpdateClient replaces an existing client record.
func (c *Client) UpdateClient(ctx context.Context, id string, req models.CreateClientRequest) (*models.Client, error) {
	var client models.Client
	if err := c.do(ctx, "UpdateClient", http.MethodPut, "/api/clients/"+url.PathEscape(id), nil, req, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// ClientRevenue fetches the per-client revenue series. months <= 0
// uses the backend default.
func (c *Client) ClientRevenue(ctx context.Context, id string, months int) (*models.ClientRevenue, error) {
	q := url.Values{}
	if months > 0 {
		q.Set("months", strconv.Itoa(months))
	}
	var revenue models.ClientRevenue
	if err := c.do(ctx, "ClientRevenue", http.MethodGet, "/api/clients/"+url.PathEscape(id)+"/revenue-data", q, nil, &revenue); err != nil {
		return nil, err
	}
	return &revenue, nil
}

// KPI fetches the dashboard KPI snapshot.
func (c *Client) KPI(ctx context.Context) (*models.KPI, error) {
	var kpi models.KPI
	if err := c.do(ctx, "KPI", http.MethodGet, "/api/dashboard/kpi", nil, nil, &kpi); err != nil {
		return nil, err
	}
	return &kpi, nil
}

// RevenueChart fetches the currency-normalized monthly revenue
// series. Order is chronological and preserved as received.
func (c *Client) RevenueChart(ctx context.Context) ([]models.RevenuePoint, error) {
	var series []models.RevenuePoint
	if err := c.do(ctx, "RevenueChart", http.MethodGet, "/api/dashboard/revenue-chart", nil, nil, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// TopClients fetches the backend's top-clients ranking.
func (c *Client) TopClients(ctx context.Context) ([]models.TopClient, error) {
	var clients []models.TopClient
	if err := c.do(ctx, "TopClients", http.MethodGet, "/api/dashboard/top-clients", nil, nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// RecentInvoices fetches the most recently created invoices.
func (c *Client) RecentInvoices(ctx context.Context, limit int) ([]models.Invoice, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var invoices []models.Invoice
	if err := c.do(ctx, "RecentInvoices", http.MethodGet, "/api/dashboard/recent-invoices", q, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ReportsSummary fetches the aggregate behind the reports page.
func (c *Client) ReportsSummary(ctx context.Context) (*models.ReportsSummary, error) {
	var summary models.ReportsSummary
	if err := c.do(ctx, "ReportsSummary", http.MethodGet, "/api/dashboard/reports-summary", nil, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// CollectionRate fetches the paid-vs-invoiced collection rate.
func (c *Client) CollectionRate(ctx context.Context) (*models.CollectionRate, error) {
	var rate models.CollectionRate
	if err := c.do(ctx, "CollectionRate", http.MethodGet, "/api/dashboard/collection-rate", nil, nil, &rate); err != nil {
		return nil, err
	}
	return &rate, nil
}

// TopRevenueMonth fetches the highest-revenue month.
func (c *Client) TopRevenueMonth(ctx context.Context) (*models.TopRevenueMonth, error) {
	var month models.TopRevenueMonth
	if err := c.do(ctx, "TopRevenueMonth", http.MethodGet, "/api/dashboard/top-revenue-month", nil, nil, &month); err != nil {
		return nil, err
	}
	return &month, nil
}

// PrimaryCurrency fetches the user's most-used currency code.
func (c *Client) PrimaryCurrency(ctx context.Context) (string, error) {
	var resp struct {
		PrimaryCurrency string `json:"primary_currency"`
	}
	if err := c.do(ctx, "PrimaryCurrency", http.MethodGet, "/api/dashboard/primary-currency", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.PrimaryCurrency, nil
}

// SyncUser upserts an identity-provider user into the backend. This
// is the one endpoint that does not require a current user id.
func (c *Client) SyncUser(ctx context.Context, req models.SyncUserRequest) (*models.SyncUserResponse, error) {
	var resp models.SyncUserResponse
	if err := c.do(ctx, "SyncUser", http.MethodPost, "/api/auth/sync-user", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do is the shared request helper. It marshals the body, attaches the
// identity and request-id headers, executes the call, and decodes the
// response into target (which may be nil for calls whose payload the
// caller discards).
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, target any) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: %s: failed to marshal request body: %w", op, err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("api: %s: failed to create request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	rlog := logger.WithRequestID(requestID)

	c.requests.Add(1)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		rlog.Warn().
			Str("op", op).
			Err(err).
			Msg("Request failed before a response arrived")
		return classifyTransport(op, err)
	}
	defer resp.Body.Close()

	rlog.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(op, resp.StatusCode, readErrorMessage(resp.Body))
	}

	if target == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &Error{
			Kind:      KindDecode,
			Op:        op,
			Status:    resp.StatusCode,
			Message:   "malformed response payload",
			Retryable: false,
			Err:       err,
		}
	}
	return nil
}

// readErrorMessage extracts the backend's {"error": "..."} message
// from a failed response, falling back to raw text. The body is
// capped so a broken backend cannot balloon error strings.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}
