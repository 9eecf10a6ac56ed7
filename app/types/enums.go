package types

import "strings"

// PaymentStatus is the persisted lifecycle state of a payment.
type PaymentStatus int32

const (
	PaymentStatusUnspecified       PaymentStatus = 0
	PaymentStatusPending           PaymentStatus = 1
	PaymentStatusInProgress        PaymentStatus = 2
	PaymentStatusPartiallyPaid     PaymentStatus = 3
	PaymentStatusPaid              PaymentStatus = 10
	PaymentStatusFailed            PaymentStatus = 20
	PaymentStatusCancelled         PaymentStatus = 21
	PaymentStatusPartiallyRefunded PaymentStatus = 30
	PaymentStatusRefunded          PaymentStatus = 31
)

var paymentStatusNames = map[PaymentStatus]string{
	PaymentStatusUnspecified:       "unspecified",
	PaymentStatusPending:           "pending",
	PaymentStatusInProgress:        "in_progress",
	PaymentStatusPartiallyPaid:     "partially_paid",
	PaymentStatusPaid:              "paid",
	PaymentStatusFailed:            "failed",
	PaymentStatusCancelled:         "cancelled",
	PaymentStatusPartiallyRefunded: "partially_refunded",
	PaymentStatusRefunded:          "refunded",
}

func (s PaymentStatus) String() string {
	if name, ok := paymentStatusNames[s]; ok {
		return name
	}
	return "unspecified"
}

// Terminal reports whether no further callback-driven transition can leave s.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// EventOutcome is the normalized, gateway-agnostic meaning of a callback.
type EventOutcome string

const (
	EventOutcomeAuthorized        EventOutcome = "authorized"
	EventOutcomePaid              EventOutcome = "paid"
	EventOutcomePartiallyPaid     EventOutcome = "partially_paid"
	EventOutcomeFailed            EventOutcome = "failed"
	EventOutcomeRefunded          EventOutcome = "refunded"
	EventOutcomePartiallyRefunded EventOutcome = "partially_refunded"
	EventOutcomeCancelled         EventOutcome = "cancelled"
)

func ParseEventOutcome(raw string) (EventOutcome, bool) {
	switch EventOutcome(strings.ToLower(strings.TrimSpace(raw))) {
	case EventOutcomeAuthorized:
		return EventOutcomeAuthorized, true
	case EventOutcomePaid:
		return EventOutcomePaid, true
	case EventOutcomePartiallyPaid:
		return EventOutcomePartiallyPaid, true
	case EventOutcomeFailed:
		return EventOutcomeFailed, true
	case EventOutcomeRefunded:
		return EventOutcomeRefunded, true
	case EventOutcomePartiallyRefunded:
		return EventOutcomePartiallyRefunded, true
	case EventOutcomeCancelled:
		return EventOutcomeCancelled, true
	default:
		return "", false
	}
}

// Outcome is the result of one callback-processing attempt.
type Outcome int32

const (
	OutcomeUnknown          Outcome = 0
	OutcomeApplied          Outcome = 1
	OutcomeDuplicate        Outcome = 2
	OutcomeRejected         Outcome = 3
	OutcomeTransientFailure Outcome = 4
	OutcomePermanentFailure Outcome = 5
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransientFailure:
		return "transient_failure"
	case OutcomePermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// RetryStatus is the lifecycle state of a retry record.
type RetryStatus int32

const (
	RetryStatusPending   RetryStatus = 1
	RetryStatusSucceeded RetryStatus = 10
	RetryStatusFailed    RetryStatus = 20
	RetryStatusExhausted RetryStatus = 30
)

var retryStatusNames = map[RetryStatus]string{
	RetryStatusPending:   "pending",
	RetryStatusSucceeded: "succeeded",
	RetryStatusFailed:    "failed",
	RetryStatusExhausted: "exhausted",
}

func (s RetryStatus) String() string {
	if name, ok := retryStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

func ParseRetryStatus(raw string) (RetryStatus, bool) {
	for status, name := range retryStatusNames {
		if name == strings.ToLower(strings.TrimSpace(raw)) {
			return status, true
		}
	}
	return 0, false
}
