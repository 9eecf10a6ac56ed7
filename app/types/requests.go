package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type CreatePaymentRequest struct {
	OrderID          string `json:"order_id"`
	Backend          string `json:"backend"`
	AmountTotalCents int64  `json:"amount_total_cents"`
	Currency         string `json:"currency"`
	Description      string `json:"description"`
	SuccessURL       string `json:"success_url"`
	FailureURL       string `json:"failure_url"`
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrderID = strings.TrimSpace(body.OrderID)
	body.Backend = strings.ToLower(strings.TrimSpace(body.Backend))
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Description = strings.TrimSpace(body.Description)
	body.SuccessURL = strings.TrimSpace(body.SuccessURL)
	body.FailureURL = strings.TrimSpace(body.FailureURL)

	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	if r.Backend == "" {
		return errors.New("backend is required")
	}
	if r.AmountTotalCents <= 0 {
		return errors.New("amount_total_cents must be > 0")
	}
	if len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	return nil
}

type GetPaymentRequest struct {
	ID uint64
}

func NewGetPaymentRequestFromContext(ctx echo.Context) (*GetPaymentRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetPaymentRequest{ID: id}, nil
}

func (r *GetPaymentRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid payment id")
	}
	return nil
}

type ListPaymentsRequest struct {
	OrderID string
	Limit   int32
	Offset  int32
}

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	req := &ListPaymentsRequest{
		OrderID: strings.TrimSpace(ctx.QueryParam("order_id")),
		Limit:   100,
		Offset:  0,
	}

	if raw := strings.TrimSpace(ctx.QueryParam("limit")); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}
	if raw := strings.TrimSpace(ctx.QueryParam("offset")); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListPaymentsRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	if r.Limit <= 0 {
		return errors.New("limit must be > 0")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

type CancelPaymentRequest struct {
	ID     uint64
	Reason string
}

func NewCancelPaymentRequestFromContext(ctx echo.Context) (*CancelPaymentRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &CancelPaymentRequest{ID: id, Reason: strings.TrimSpace(body.Reason)}, nil
}

func (r *CancelPaymentRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid payment id")
	}
	return nil
}

type ListRetriesRequest struct {
	Status RetryStatus
	Limit  int32
	Offset int32
}

func NewListRetriesRequestFromContext(ctx echo.Context) (*ListRetriesRequest, error) {
	req := &ListRetriesRequest{
		Status: RetryStatusExhausted,
		Limit:  100,
		Offset: 0,
	}

	if raw := strings.TrimSpace(ctx.QueryParam("status")); raw != "" {
		status, ok := ParseRetryStatus(raw)
		if !ok {
			return nil, errors.New("invalid retry status")
		}
		req.Status = status
	}
	if raw := strings.TrimSpace(ctx.QueryParam("limit")); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}
	if raw := strings.TrimSpace(ctx.QueryParam("offset")); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListRetriesRequest) Validate() error {
	if r.Limit <= 0 {
		return errors.New("limit must be > 0")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}
