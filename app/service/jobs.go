package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/luminapay/ms-go-callbacks/app/types"
)

// RunDueRetriesBatch is the periodic retry driver: it pulls due retry
// records and re-enters the callback processor with the stored payload and
// headers, then settles each record from the outcome. Applied, duplicate and
// rejected all terminate the record as succeeded, since in every one of those
// cases the event needs no further delivery.
func (s *PaymentService) RunDueRetriesBatch(ctx context.Context) error {
	records, err := s.scheduler.Due(ctx, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, record := range records {
		if record == nil {
			continue
		}

		outcome, processErr := s.processCallbackOnce(ctx, record.PaymentID, record.Payload, record.Headers, true)

		var settleErr error
		switch outcome {
		case types.OutcomeApplied, types.OutcomeDuplicate, types.OutcomeRejected:
			settleErr = s.scheduler.Succeed(ctx, record.ID)
		case types.OutcomePermanentFailure:
			settleErr = s.scheduler.MarkFailed(ctx, record.ID, processErr)
		default:
			settleErr = s.scheduler.Fail(ctx, record.ID, processErr)
			if errors.Is(settleErr, ErrRetryExhausted) {
				settleErr = nil
			}
		}

		if settleErr != nil {
			firstErr = keepFirstErr(firstErr, settleErr)
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"retry_id":   record.ID,
			"payment_id": record.PaymentID,
			"outcome":    outcome.String(),
		}).Info("callback_retry_attempted")
	}

	return firstErr
}
