package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/gateway"
	"github.com/luminapay/ms-go-callbacks/app/repository"
	"github.com/luminapay/ms-go-callbacks/app/types"
)

// CreatePayment registers a pending payment for an order at checkout
// initiation. The callback token it mints is the path segment the gateway
// will post status callbacks to.
func (s *PaymentService) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*entity.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if _, err := s.gatewayReg.Get(req.Backend); err != nil {
		if errors.Is(err, gateway.ErrBackendNotSupported) {
			return nil, ErrBackendUnsupported
		}
		return nil, err
	}

	now := time.Now().UTC()
	payment := &entity.Payment{
		OrderID:          req.OrderID,
		Backend:          req.Backend,
		CallbackToken:    uuid.NewString(),
		AmountTotalCents: req.AmountTotalCents,
		Currency:         req.Currency,
		Status:           types.PaymentStatusPending,
		Description:      req.Description,
		SuccessURL:       req.SuccessURL,
		FailureURL:       req.FailureURL,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadyExists) {
			return nil, ErrPaymentAlreadyExists
		}
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		EventType: "payment_created",
		NewStatus: payment.Status,
		CreatedAt: now,
	})

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uint64) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, req *types.ListPaymentsRequest) ([]*entity.Payment, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.paymentRepo.ListByOrderID(ctx, req.OrderID, limit, req.Offset)
}

// CancelPayment is the explicit operator/timeout path out of the pre-payment
// states. Anything that has received money can only move through callbacks.
func (s *PaymentService) CancelPayment(ctx context.Context, req *types.CancelPaymentRequest) (*entity.Payment, error) {
	unlock := s.locks.Lock(req.ID)
	defer unlock()

	payment, err := s.paymentRepo.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if payment.Status != types.PaymentStatusPending && payment.Status != types.PaymentStatusInProgress {
		return nil, fmt.Errorf("%w: only pending payments can be cancelled", ErrInvalidStatus)
	}

	now := time.Now().UTC()
	oldStatus := payment.Status
	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, payment.Version, types.PaymentStatusCancelled, now); err != nil {
		return nil, err
	}
	payment.Status = types.PaymentStatusCancelled
	payment.Version++
	payment.UpdatedAt = now

	eventType := "payment_cancelled"
	var payloadJSON *string
	if req.Reason != "" {
		reason := truncate(req.Reason, 1024)
		payloadJSON = &reason
	}
	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID:   payment.ID,
		EventType:   eventType,
		OldStatus:   &oldStatus,
		NewStatus:   payment.Status,
		PayloadJSON: payloadJSON,
		CreatedAt:   now,
	})

	return payment, nil
}

// ListRetries surfaces retry records, by default the exhausted dead letters
// that need operator attention.
func (s *PaymentService) ListRetries(ctx context.Context, req *types.ListRetriesRequest) ([]*entity.RetryRecord, error) {
	return s.scheduler.List(ctx, req.Status, req.Limit, req.Offset)
}
