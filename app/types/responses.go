package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// CallbackAckResponse is the body returned to the gateway for every
// acknowledged callback, naming the processing result.
type CallbackAckResponse struct {
	Result string `json:"result"`
}

type Payment struct {
	ID                  uint64 `json:"id"`
	OrderID             string `json:"order_id"`
	Backend             string `json:"backend"`
	AmountTotalCents    int64  `json:"amount_total_cents"`
	AmountPaidCents     int64  `json:"amount_paid_cents"`
	AmountRefundedCents int64  `json:"amount_refunded_cents"`
	Currency            string `json:"currency"`
	Status              string `json:"status"`
	ExternalReference   string `json:"external_reference,omitempty"`
	Overpaid            bool   `json:"overpaid"`
	Description         string `json:"description,omitempty"`
	CallbackToken       string `json:"callback_token"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type RetryRecord struct {
	ID            uint64 `json:"id"`
	PaymentID     uint64 `json:"payment_id"`
	Attempts      int32  `json:"attempts"`
	Status        string `json:"status"`
	NextAttemptAt string `json:"next_attempt_at,omitempty"`
	LastError     string `json:"last_error,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type ListRetriesResponse struct {
	Retries []*RetryRecord `json:"retries"`
}
