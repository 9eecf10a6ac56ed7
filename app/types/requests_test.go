package types

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func jsonContext(t *testing.T, method, target, body string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestCreatePaymentRequestNormalization(t *testing.T) {
	ctx := jsonContext(t, http.MethodPost, "/payments",
		`{"order_id":" order-1 ","backend":" Dummy ","amount_total_cents":1000,"currency":"eur","description":" desc "}`)

	req, err := NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.OrderID != "order-1" {
		t.Fatalf("expected trimmed order id, got %q", req.OrderID)
	}
	if req.Backend != "dummy" {
		t.Fatalf("expected lowercased backend, got %q", req.Backend)
	}
	if req.Currency != "EUR" {
		t.Fatalf("expected uppercased currency, got %q", req.Currency)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestCreatePaymentRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  CreatePaymentRequest
	}{
		{"missing order id", CreatePaymentRequest{Backend: "dummy", AmountTotalCents: 100, Currency: "EUR"}},
		{"missing backend", CreatePaymentRequest{OrderID: "o", AmountTotalCents: 100, Currency: "EUR"}},
		{"zero amount", CreatePaymentRequest{OrderID: "o", Backend: "dummy", Currency: "EUR"}},
		{"negative amount", CreatePaymentRequest{OrderID: "o", Backend: "dummy", AmountTotalCents: -5, Currency: "EUR"}},
		{"bad currency", CreatePaymentRequest{OrderID: "o", Backend: "dummy", AmountTotalCents: 100, Currency: "EURO"}},
	}

	for _, tc := range cases {
		if err := tc.req.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestGetPaymentRequestFromContext(t *testing.T) {
	ctx := jsonContext(t, http.MethodGet, "/payments/12", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("12")

	req, err := NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.ID != 12 {
		t.Fatalf("expected id 12, got %d", req.ID)
	}

	ctx = jsonContext(t, http.MethodGet, "/payments/abc", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("abc")
	if _, err := NewGetPaymentRequestFromContext(ctx); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestListPaymentsRequestDefaults(t *testing.T) {
	ctx := jsonContext(t, http.MethodGet, "/payments?order_id=order-1", "")

	req, err := NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.Limit != 100 || req.Offset != 0 {
		t.Fatalf("expected defaults 100/0, got %d/%d", req.Limit, req.Offset)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	req.OrderID = ""
	if err := req.Validate(); err == nil {
		t.Fatal("expected error for missing order_id")
	}
}

func TestListRetriesRequestDefaultsToExhausted(t *testing.T) {
	ctx := jsonContext(t, http.MethodGet, "/retries", "")

	req, err := NewListRetriesRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.Status != RetryStatusExhausted {
		t.Fatalf("expected default status exhausted, got %s", req.Status)
	}

	ctx = jsonContext(t, http.MethodGet, "/retries?status=pending", "")
	req, err = NewListRetriesRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.Status != RetryStatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}

	ctx = jsonContext(t, http.MethodGet, "/retries?status=bogus", "")
	if _, err := NewListRetriesRequestFromContext(ctx); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
