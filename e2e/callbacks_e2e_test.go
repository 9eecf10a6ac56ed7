//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/luminapay/ms-go-callbacks/app/types"
)

const defaultCallbacksHTTPBase = "http://localhost:48080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

// doCallback posts a raw signed payload the way a gateway would.
func (c *httpClient) doCallback(t *testing.T, token string, payload []byte, secret string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/callbacks/"+token, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signPayload(payload, secret, time.Now().Unix()))

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func signPayload(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func gatewaySecret() string {
	if secret := os.Getenv("GATEWAY_DUMMY_SECRET"); secret != "" {
		return secret
	}
	return "whsec_e2e"
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestCallbacksE2E(t *testing.T) {
	httpBase := os.Getenv("CALLBACKS_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultCallbacksHTTPBase
	}

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient(httpBase)
	orderID := fmt.Sprintf("e2e-order-%d", time.Now().UnixNano())

	var payment types.Payment

	t.Run("CreatePayment", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/payments", map[string]any{
			"order_id":           orderID,
			"backend":            "dummy",
			"amount_total_cents": 1000,
			"currency":           "EUR",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", resp.StatusCode, string(body))
		}

		var envelope types.PaymentEnvelopeResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			t.Fatalf("unmarshal failed: %v body=%s", err, string(body))
		}
		if envelope.Payment == nil || envelope.Payment.CallbackToken == "" {
			t.Fatalf("expected payment with callback token, got %s", string(body))
		}
		payment = *envelope.Payment
	})

	t.Run("CreatePaymentValidation", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/payments", map[string]any{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid create request, got %d", resp.StatusCode)
		}
	})

	t.Run("CallbackApplies", func(t *testing.T) {
		payload := []byte(fmt.Sprintf(`{"reference":"e2e-tx-%s","outcome":"paid","amount_cents":1000}`, orderID))
		resp, body := client.doCallback(t, payment.CallbackToken, payload, gatewaySecret())
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}

		var ack types.CallbackAckResponse
		if err := json.Unmarshal(body, &ack); err != nil {
			t.Fatalf("unmarshal failed: %v body=%s", err, string(body))
		}
		if ack.Result != "applied" {
			t.Fatalf("expected result applied, got %q", ack.Result)
		}
	})

	t.Run("CallbackDuplicate", func(t *testing.T) {
		payload := []byte(fmt.Sprintf(`{"reference":"e2e-tx-%s","outcome":"paid","amount_cents":1000}`, orderID))
		resp, body := client.doCallback(t, payment.CallbackToken, payload, gatewaySecret())
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}

		var ack types.CallbackAckResponse
		_ = json.Unmarshal(body, &ack)
		if ack.Result != "duplicate" {
			t.Fatalf("expected result duplicate, got %q", ack.Result)
		}
	})

	t.Run("PaymentIsPaid", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, fmt.Sprintf("/payments/%d", payment.ID), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}

		var envelope types.PaymentEnvelopeResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if envelope.Payment.Status != "paid" {
			t.Fatalf("expected status paid, got %q", envelope.Payment.Status)
		}
		if envelope.Payment.AmountPaidCents != 1000 {
			t.Fatalf("expected paid amount 1000, got %d", envelope.Payment.AmountPaidCents)
		}
	})

	t.Run("CallbackBadSignature", func(t *testing.T) {
		payload := []byte(`{"reference":"e2e-bad-sig","outcome":"paid"}`)
		resp, body := client.doCallback(t, payment.CallbackToken, payload, "wrong-secret")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 acknowledgement, got %d body=%s", resp.StatusCode, string(body))
		}

		var ack types.CallbackAckResponse
		_ = json.Unmarshal(body, &ack)
		if ack.Result != "permanent_failure" {
			t.Fatalf("expected result permanent_failure, got %q", ack.Result)
		}
	})

	t.Run("CallbackUnknownToken", func(t *testing.T) {
		payload := []byte(`{"reference":"e2e-unknown","outcome":"paid"}`)
		resp, _ := client.doCallback(t, "no-such-token", payload, gatewaySecret())
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("ListPayments", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/payments?order_id="+orderID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}

		var payload types.ListPaymentsResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if len(payload.Payments) != 1 {
			t.Fatalf("expected 1 payment, got %d", len(payload.Payments))
		}
	})

	t.Run("CancelNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/payments/999999/cancel", map[string]any{"reason": "e2e"})
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("CancelPaidConflicts", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, fmt.Sprintf("/payments/%d/cancel", payment.ID), map[string]any{"reason": "e2e"})
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("ListRetries", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/retries?status=exhausted", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}

		var payload types.ListRetriesResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
	})
}
