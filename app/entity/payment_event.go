package entity

import (
	"time"

	"github.com/luminapay/ms-go-callbacks/app/types"
)

// PaymentEvent is one row of the transition audit trail.
type PaymentEvent struct {
	ID uint64

	PaymentID uint64

	EventType string

	OldStatus *types.PaymentStatus
	NewStatus types.PaymentStatus

	GatewayReference *string
	PayloadJSON      *string

	CreatedAt time.Time
}
