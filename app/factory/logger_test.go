package factory

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func entryOf(t *testing.T, logger logrus.FieldLogger) *logrus.Entry {
	t.Helper()
	entry, ok := logger.(*logrus.Entry)
	if !ok {
		t.Fatalf("expected *logrus.Entry, got %T", logger)
	}
	return entry
}

func TestNewModuleLogger(t *testing.T) {
	logger := NewModuleLogger("payments-service")
	entry := entryOf(t, logger)

	if got := entry.Data["module"]; got != "payments-service" {
		t.Fatalf("expected module field, got %v", got)
	}
}

func TestLoggerWithContext(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	ctx := e.NewContext(req, httptest.NewRecorder())

	logger := LoggerWithContext(NewModuleLogger("test"), ctx)
	entry := entryOf(t, logger)
	if got := entry.Data["request_id"]; got != "req-123" {
		t.Fatalf("expected request_id field, got %v", got)
	}

	// Without the header the logger passes through unchanged.
	plain := NewModuleLogger("test")
	ctx = e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), httptest.NewRecorder())
	if got := LoggerWithContext(plain, ctx); got != plain {
		t.Fatal("expected logger to be returned unchanged without a request id")
	}
}
