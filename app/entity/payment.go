package entity

import (
	"time"

	"github.com/luminapay/ms-go-callbacks/app/types"
)

type Payment struct {
	ID uint64

	OrderID string
	Backend string

	// CallbackToken is the unguessable path segment gateways post callbacks to.
	CallbackToken string

	AmountTotalCents    int64
	AmountPaidCents     int64
	AmountRefundedCents int64
	Currency            string

	Status types.PaymentStatus

	// ExternalReference is the gateway's transaction id, set on the first
	// successfully applied callback.
	ExternalReference *string

	// Overpaid marks payments where the gateway reported more than
	// AmountTotalCents and the backend's policy allowed it. Amounts are
	// never clamped.
	Overpaid bool

	Description string
	SuccessURL  string
	FailureURL  string

	// Version is the optimistic concurrency token, incremented on every write.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Payment) IsFullyPaid() bool {
	return p.Status == types.PaymentStatusPaid
}

func (p *Payment) IsFullyRefunded() bool {
	return p.Status == types.PaymentStatusRefunded
}

func (p *Payment) AmountOutstandingCents() int64 {
	outstanding := p.AmountTotalCents - p.AmountPaidCents
	if outstanding < 0 {
		return 0
	}
	return outstanding
}
