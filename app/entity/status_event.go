package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/luminapay/ms-go-callbacks/app/types"
)

// StatusEvent is one normalized gateway fact. It is immutable once built and
// is never persisted on its own, only as part of a retry record's payload.
type StatusEvent struct {
	PaymentID        uint64
	Outcome          types.EventOutcome
	AmountCents      *int64
	GatewayReference string
	OccurredAt       time.Time
	RawPayload       []byte
}

// DedupKey derives the idempotency key for this event. Two deliveries of the
// same semantic fact hash to the same key; a different amount or outcome for
// the same gateway reference is a new fact.
func (e *StatusEvent) DedupKey() string {
	amount := "full"
	if e.AmountCents != nil {
		amount = strconv.FormatInt(*e.AmountCents, 10)
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%d|%s|%s|%s", e.PaymentID, e.GatewayReference, e.Outcome, amount))
	return hex.EncodeToString(sum[:])
}
