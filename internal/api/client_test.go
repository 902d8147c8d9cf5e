package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"billow/internal/api"
	"billow/pkg/models"
)

func TestIdentityHeaderAttached(t *testing.T) {
	var gotUser, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-User-ID")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "USR-123")
	if _, err := client.ListInvoices(context.Background(), models.InvoiceQuery{}); err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}

	if gotUser != "USR-123" {
		t.Errorf("X-User-ID = %q, want USR-123", gotUser)
	}
	if gotRequestID == "" {
		t.Errorf("X-Request-ID must be set on every call")
	}
}

func TestQueryParameterEncoding(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "USR-123")
	q := models.InvoiceQuery{
		Search:    "acme",
		Status:    models.StatusOverdue,
		Currency:  "EUR",
		AmountMin: 500,
	}
	if _, err := client.ListInvoices(context.Background(), q); err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}

	values, err := url.ParseQuery(got)
	if err != nil {
		t.Fatalf("bad query %q: %v", got, err)
	}
	if values.Get("search") != "acme" || values.Get("status") != "overdue" ||
		values.Get("currency") != "EUR" || values.Get("amount_min") != "500" {
		t.Errorf("unexpected query: %q", got)
	}
	if values.Has("amount_max") || values.Has("date_from") {
		t.Errorf("unset tuple fields must be omitted: %q", got)
	}
}

func TestAuthErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "USR-123")
	_, err := client.KPI(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if apiErr.Kind != api.KindAuth {
		t.Errorf("Kind = %s, want auth", apiErr.Kind)
	}
	if apiErr.Retryable {
		t.Errorf("auth errors must not be retryable")
	}
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Errorf("auth errors should unwrap to ErrUnauthorized")
	}
}

func TestServerErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to fetch invoices"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "USR-123")
	_, err := client.ListInvoices(context.Background(), models.InvoiceQuery{})

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %v", err)
	}
	if apiErr.Kind != api.KindServer {
		t.Errorf("Kind = %s, want server", apiErr.Kind)
	}
	if !apiErr.Retryable {
		t.Errorf("server errors are retryable at the caller's discretion")
	}
	if apiErr.Message != "Failed to fetch invoices" {
		t.Errorf("Message = %q, want backend error string", apiErr.Message)
	}
}

func TestDecodeErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "USR-123")
	_, err := client.KPI(context.Background())

	if kind := api.KindOf(err); kind != api.KindDecode {
		t.Errorf("Kind = %s, want decode", kind)
	}
	if api.IsRetryable(err) {
		t.Errorf("decode errors indicate a contract mismatch and must not be retryable")
	}
}

func TestTimeoutClassifiedAsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "USR-123", api.WithTimeout(20*time.Millisecond))
	_, err := client.ListInvoices(context.Background(), models.InvoiceQuery{})

	if kind := api.KindOf(err); kind != api.KindNetwork {
		t.Errorf("Kind = %s, want network", kind)
	}
	if !api.IsRetryable(err) {
		t.Errorf("timeouts must be retryable")
	}
}

func TestNoAutomaticRetry(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "USR-123")
	client.ListInvoices(context.Background(), models.InvoiceQuery{})

	if hits.Load() != 1 {
		t.Errorf("client must never retry on its own; server saw %d requests", hits.Load())
	}
	if client.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", client.RequestCount())
	}
}

func TestCreateClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/clients" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id":"CLI-1","name":"Acme","email":"a@acme.com"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "USR-123")
	created, err := client.CreateClient(context.Background(), models.CreateClientRequest{
		Name:  "Acme",
		Email: "a@acme.com",
	})
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if created.ID != "CLI-1" || created.Name != "Acme" {
		t.Errorf("unexpected response: %+v", created)
	}
}
