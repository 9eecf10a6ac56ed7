package entity

import (
	"time"

	"github.com/luminapay/ms-go-callbacks/app/types"
)

// RetryRecord is one queued re-delivery of a callback whose application
// failed transiently. Terminal records are kept as an audit and dead-letter
// trail, never deleted.
type RetryRecord struct {
	ID uint64

	PaymentID uint64

	// Payload and Headers are the original inbound callback, kept verbatim so
	// gateway signatures still verify on replay.
	Payload []byte
	Headers map[string]string

	Attempts      int32
	Status        types.RetryStatus
	NextAttemptAt time.Time
	LastError     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
