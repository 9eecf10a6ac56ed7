package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/fsm"
	"github.com/luminapay/ms-go-callbacks/app/gateway"
	"github.com/luminapay/ms-go-callbacks/app/repository"
	"github.com/luminapay/ms-go-callbacks/app/types"
)

// HandleCallbackByToken is the webhook entry point: it resolves the payment
// behind the callback token and runs the processor.
func (s *PaymentService) HandleCallbackByToken(ctx context.Context, token string, payload []byte, headers map[string]string) (types.Outcome, error) {
	payment, err := s.paymentRepo.FindByCallbackToken(ctx, token)
	if err != nil {
		return types.OutcomeTransientFailure, err
	}
	if payment == nil {
		return types.OutcomePermanentFailure, ErrPaymentNotFound
	}
	return s.ProcessCallback(ctx, payment.ID, payload, headers)
}

// ProcessCallback applies one live callback delivery. On transient failure
// the original payload and headers are queued for redelivery; the caller
// still must not acknowledge success, so the gateway's own retransmission
// remains a second safety net. Both nets may race; the idempotency key makes
// that harmless.
func (s *PaymentService) ProcessCallback(ctx context.Context, paymentID uint64, payload []byte, headers map[string]string) (types.Outcome, error) {
	outcome, err := s.processCallbackOnce(ctx, paymentID, payload, headers, false)
	if outcome != types.OutcomeTransientFailure {
		return outcome, err
	}

	if _, qErr := s.scheduler.Enqueue(ctx, paymentID, payload, headers); qErr != nil {
		s.logger.WithError(qErr).WithField("payment_id", paymentID).Error("callback_retry_enqueue_failed")
		err = keepFirstErr(err, qErr)
	}
	return outcome, err
}

// processCallbackOnce runs one serialized attempt: normalize, dedup check,
// state machine transition, atomic persist. It never enqueues; replays call
// it directly (with replay set) so a transient failure counts against the
// existing record instead of spawning a new one.
func (s *PaymentService) processCallbackOnce(ctx context.Context, paymentID uint64, payload []byte, headers map[string]string, replay bool) (types.Outcome, error) {
	unlock := s.locks.Lock(paymentID)
	defer unlock()

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return types.OutcomeTransientFailure, err
	}
	if payment == nil {
		return types.OutcomePermanentFailure, ErrPaymentNotFound
	}

	event, err := s.normalizeEvent(payment, payload, headers, replay)
	if err != nil {
		s.persistCallbackAudit(ctx, payment, payload, headers, entity.CallbackRecordRejected, err)
		if errors.Is(err, gateway.ErrBackendNotSupported) {
			return types.OutcomePermanentFailure, ErrBackendUnsupported
		}
		return types.OutcomePermanentFailure, err
	}

	dedupKey := event.DedupKey()
	seen, err := s.keyRepo.Exists(ctx, payment.ID, dedupKey)
	if err != nil {
		return types.OutcomeTransientFailure, err
	}
	if seen {
		s.logger.WithFields(logrus.Fields{
			"payment_id":        payment.ID,
			"gateway_reference": event.GatewayReference,
			"outcome":           event.Outcome,
		}).Info("callback_duplicate")
		return types.OutcomeDuplicate, nil
	}

	allowOverpayment := s.allowsOverpayment(payment.Backend)

	// A stale version token means a cancel or expiry landed between our read
	// and write; re-read once and re-run the transition inside the same
	// serialized scope before falling back to the retry queue.
	for attempt := 0; ; attempt++ {
		transition, accepted := fsm.Apply(paymentSnapshot(payment, allowOverpayment), event.Outcome, event.AmountCents)
		if !accepted {
			s.logger.WithFields(logrus.Fields{
				"payment_id":        payment.ID,
				"status":            payment.Status.String(),
				"outcome":           event.Outcome,
				"gateway_reference": event.GatewayReference,
			}).Info("callback_ignored")
			return types.OutcomeRejected, nil
		}

		now := time.Now().UTC()
		oldStatus := payment.Status
		payment.Status = transition.Status
		payment.AmountPaidCents = transition.AmountPaidCents
		payment.AmountRefundedCents = transition.AmountRefundedCents
		payment.Overpaid = transition.Overpaid
		// The first gateway reference sticks; later events (refunds carry
		// their own transaction ids) keep theirs in the audit event's
		// gateway_reference column.
		if payment.ExternalReference == nil {
			ref := event.GatewayReference
			payment.ExternalReference = &ref
		}
		payment.UpdatedAt = now

		payloadJSON := string(payload)
		gatewayRef := event.GatewayReference
		auditEvent := &entity.PaymentEvent{
			PaymentID:        payment.ID,
			EventType:        "gateway_callback",
			OldStatus:        &oldStatus,
			NewStatus:        transition.Status,
			GatewayReference: &gatewayRef,
			PayloadJSON:      &payloadJSON,
			CreatedAt:        now,
		}

		err := s.paymentRepo.ApplyTransition(ctx, payment, dedupKey, auditEvent)
		switch {
		case err == nil:
			s.persistCallbackAudit(ctx, payment, payload, headers, entity.CallbackRecordProcessed, nil)
			return types.OutcomeApplied, nil

		case errors.Is(err, repository.ErrDuplicateKey):
			return types.OutcomeDuplicate, nil

		case errors.Is(err, repository.ErrVersionConflict) && attempt == 0:
			fresh, findErr := s.paymentRepo.FindByID(ctx, payment.ID)
			if findErr != nil {
				return types.OutcomeTransientFailure, findErr
			}
			if fresh == nil {
				return types.OutcomePermanentFailure, ErrPaymentNotFound
			}
			payment = fresh

		default:
			s.persistCallbackAudit(ctx, payment, payload, headers, entity.CallbackRecordDeferred, err)
			return types.OutcomeTransientFailure, err
		}
	}
}

func paymentSnapshot(payment *entity.Payment, allowOverpayment bool) fsm.Snapshot {
	return fsm.Snapshot{
		Status:              payment.Status,
		AmountTotalCents:    payment.AmountTotalCents,
		AmountPaidCents:     payment.AmountPaidCents,
		AmountRefundedCents: payment.AmountRefundedCents,
		Overpaid:            payment.Overpaid,
		AllowOverpayment:    allowOverpayment,
	}
}

// persistCallbackAudit records the inbound callback for audit. Best effort:
// the processing outcome stands even when the audit write fails.
func (s *PaymentService) persistCallbackAudit(
	ctx context.Context,
	payment *entity.Payment,
	payload []byte,
	headers map[string]string,
	status int32,
	cause error,
) {
	now := time.Now().UTC()

	headersJSON, err := json.Marshal(headers)
	if err != nil {
		headersJSON = []byte("{}")
	}

	record := &entity.PaymentCallback{
		Backend:     payment.Backend,
		PayloadJSON: string(payload),
		HeadersJSON: string(headersJSON),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	paymentID := payment.ID
	record.PaymentID = &paymentID
	if cause != nil {
		msg := truncate(cause.Error(), 1024)
		record.Error = &msg
	}

	if err := s.callbackRepo.Create(ctx, record); err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID).Warn("callback_audit_write_failed")
	}
}
