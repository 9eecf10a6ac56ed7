// Package fsm holds the payment status state machine. It is pure: Apply
// performs no I/O and is deterministic over its inputs, which is what makes
// the idempotency and retry machinery around it tractable.
package fsm

import "github.com/luminapay/ms-go-callbacks/app/types"

// Snapshot is the slice of a payment the state machine reads.
type Snapshot struct {
	Status              types.PaymentStatus
	AmountTotalCents    int64
	AmountPaidCents     int64
	AmountRefundedCents int64
	Overpaid            bool

	// AllowOverpayment is the backend's policy for amounts exceeding the
	// total. When false, an overpaying event is rejected outright.
	AllowOverpayment bool
}

// Transition is the accepted result of applying an event.
type Transition struct {
	Status              types.PaymentStatus
	AmountPaidCents     int64
	AmountRefundedCents int64
	Overpaid            bool
}

// Apply validates a normalized event against the current snapshot and
// computes the successor state. The second return value reports acceptance:
// a false result means the event is semantically stale or illegal and must
// be ignored (acknowledged, not applied, not an error).
//
// A nil amount on a payment event means the full outstanding amount; on a
// refund event it means the full refundable amount.
func Apply(cur Snapshot, outcome types.EventOutcome, amountCents *int64) (Transition, bool) {
	tr := Transition{
		Status:              cur.Status,
		AmountPaidCents:     cur.AmountPaidCents,
		AmountRefundedCents: cur.AmountRefundedCents,
		Overpaid:            cur.Overpaid,
	}

	if cur.Status.Terminal() {
		return Transition{}, false
	}

	switch outcome {
	case types.EventOutcomeAuthorized:
		if cur.Status != types.PaymentStatusPending && cur.Status != types.PaymentStatusInProgress {
			return Transition{}, false
		}
		tr.Status = types.PaymentStatusInProgress
		return tr, true

	case types.EventOutcomePaid, types.EventOutcomePartiallyPaid:
		return applyPayment(cur, tr, amountCents)

	case types.EventOutcomeRefunded, types.EventOutcomePartiallyRefunded:
		return applyRefund(cur, tr, amountCents)

	case types.EventOutcomeFailed:
		if cur.Status != types.PaymentStatusPending && cur.Status != types.PaymentStatusInProgress {
			return Transition{}, false
		}
		tr.Status = types.PaymentStatusFailed
		return tr, true

	case types.EventOutcomeCancelled:
		if cur.Status != types.PaymentStatusPending && cur.Status != types.PaymentStatusInProgress {
			return Transition{}, false
		}
		tr.Status = types.PaymentStatusCancelled
		return tr, true

	default:
		return Transition{}, false
	}
}

func applyPayment(cur Snapshot, tr Transition, amountCents *int64) (Transition, bool) {
	switch cur.Status {
	case types.PaymentStatusPending, types.PaymentStatusInProgress, types.PaymentStatusPartiallyPaid:
	default:
		return Transition{}, false
	}

	amount := cur.AmountTotalCents - cur.AmountPaidCents
	if amountCents != nil {
		amount = *amountCents
	}
	if amount <= 0 {
		return Transition{}, false
	}

	newPaid := cur.AmountPaidCents + amount
	if newPaid > cur.AmountTotalCents {
		if !cur.AllowOverpayment {
			return Transition{}, false
		}
		tr.Overpaid = true
	}

	tr.AmountPaidCents = newPaid
	if newPaid >= cur.AmountTotalCents {
		tr.Status = types.PaymentStatusPaid
	} else {
		tr.Status = types.PaymentStatusPartiallyPaid
	}
	return tr, true
}

func applyRefund(cur Snapshot, tr Transition, amountCents *int64) (Transition, bool) {
	switch cur.Status {
	case types.PaymentStatusPaid, types.PaymentStatusPartiallyPaid, types.PaymentStatusPartiallyRefunded:
	default:
		return Transition{}, false
	}
	if cur.AmountPaidCents <= 0 {
		return Transition{}, false
	}

	amount := cur.AmountPaidCents - cur.AmountRefundedCents
	if amountCents != nil {
		amount = *amountCents
	}
	if amount <= 0 {
		return Transition{}, false
	}

	newRefunded := cur.AmountRefundedCents + amount
	if newRefunded > cur.AmountPaidCents {
		return Transition{}, false
	}

	tr.AmountRefundedCents = newRefunded
	if newRefunded == cur.AmountPaidCents {
		tr.Status = types.PaymentStatusRefunded
	} else {
		tr.Status = types.PaymentStatusPartiallyRefunded
	}
	return tr, true
}
