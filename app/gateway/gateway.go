// Package gateway defines the adapter capability this service consumes for
// each configured payment backend, plus the closed registry that resolves an
// adapter by backend name at startup.
package gateway

import (
	"errors"
	"time"
)

var (
	ErrBackendNotSupported = errors.New("backend is not supported")
	ErrMalformedCallback   = errors.New("malformed callback payload")
	ErrInvalidSignature    = errors.New("invalid callback signature")
)

// DecodedEvent is the gateway-specific decoder's output before normalization.
type DecodedEvent struct {
	GatewayReference string
	Outcome          string
	AmountCents      *int64
	OccurredAt       *time.Time
}

type Adapter interface {
	Name() string
	// Verify checks a live delivery's authenticity (signature, timestamp).
	Verify(payload []byte, headers map[string]string) bool
	// VerifyReplay checks authenticity without the timestamp freshness
	// window. Stored deliveries replayed by the retry driver carry their
	// original signature timestamp, which may be arbitrarily old by the time
	// a retry fires; the retry record itself bounds the event's age.
	VerifyReplay(payload []byte, headers map[string]string) bool
	// Decode parses the raw payload into gateway-agnostic fields. Failures
	// are permanent: the payload will never become parseable by waiting.
	Decode(payload []byte, headers map[string]string) (*DecodedEvent, error)
	// AllowsOverpayment is the backend's policy for amounts above the total.
	AllowsOverpayment() bool
}
