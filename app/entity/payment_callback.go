package entity

import "time"

const (
	CallbackRecordProcessed int32 = 10
	CallbackRecordRejected  int32 = 20
	CallbackRecordDeferred  int32 = 30
)

// PaymentCallback records one inbound gateway callback for audit, whether it
// was applied, rejected, or deferred to the retry queue.
type PaymentCallback struct {
	ID uint64

	PaymentID *uint64

	Backend     string
	PayloadJSON string
	HeadersJSON string
	Status      int32
	Error       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
