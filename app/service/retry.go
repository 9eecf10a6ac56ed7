package service

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/factory"
	"github.com/luminapay/ms-go-callbacks/app/types"
	"github.com/luminapay/ms-go-callbacks/config"
)

type retryRecordRepository interface {
	Create(ctx context.Context, record *entity.RetryRecord) error
	Update(ctx context.Context, record *entity.RetryRecord) error
	FindByID(ctx context.Context, id uint64) (*entity.RetryRecord, error)
	ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.RetryRecord, error)
	ListByStatus(ctx context.Context, status types.RetryStatus, limit, offset int32) ([]*entity.RetryRecord, error)
}

// clock is the slice of zoobzio/clockz the scheduler needs.
type clock interface {
	Now() time.Time
}

// RetryScheduler owns the durable queue of failed callback applications. All
// access to retry records goes through it.
type RetryScheduler struct {
	repo   retryRecordRepository
	cfg    config.RetryConfig
	clock  clock
	logger logrus.FieldLogger
}

func NewRetryScheduler(repo retryRecordRepository, cfg config.RetryConfig, clk clock) *RetryScheduler {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Minute
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.JitterPct < 0 || cfg.JitterPct >= 1 {
		cfg.JitterPct = 0.2
	}

	return &RetryScheduler{
		repo:   repo,
		cfg:    cfg,
		clock:  clk,
		logger: factory.NewModuleLogger("retry-scheduler"),
	}
}

// Enqueue stores a transiently failed callback for redelivery, first attempt
// one base delay from now.
func (s *RetryScheduler) Enqueue(ctx context.Context, paymentID uint64, payload []byte, headers map[string]string) (uint64, error) {
	now := s.clock.Now().UTC()
	record := &entity.RetryRecord{
		PaymentID:     paymentID,
		Payload:       payload,
		Headers:       headers,
		Attempts:      0,
		Status:        types.RetryStatusPending,
		NextAttemptAt: now.Add(s.cfg.BaseDelay),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"retry_id":        record.ID,
		"payment_id":      paymentID,
		"next_attempt_at": record.NextAttemptAt,
	}).Info("callback_retry_enqueued")

	return record.ID, nil
}

// Due returns up to limit pending records ready for redelivery, oldest first.
func (s *RetryScheduler) Due(ctx context.Context, limit int32) ([]*entity.RetryRecord, error) {
	return s.repo.ListDue(ctx, s.clock.Now().UTC(), limit)
}

// Succeed terminates a record whose replay was applied (or resolved as a
// duplicate or stale event).
func (s *RetryScheduler) Succeed(ctx context.Context, retryID uint64) error {
	record, err := s.mustFind(ctx, retryID)
	if err != nil {
		return err
	}

	record.Status = types.RetryStatusSucceeded
	record.UpdatedAt = s.clock.Now().UTC()
	return s.repo.Update(ctx, record)
}

// Fail counts a failed attempt. The record either stays pending with a
// backed-off next attempt or, at the max-attempts boundary, dead-letters as
// exhausted and is surfaced for operator inspection.
func (s *RetryScheduler) Fail(ctx context.Context, retryID uint64, cause error) error {
	record, err := s.mustFind(ctx, retryID)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	record.Attempts++
	record.UpdatedAt = now
	if cause != nil {
		msg := truncate(cause.Error(), 1024)
		record.LastError = &msg
	}

	if record.Attempts >= s.cfg.MaxAttempts {
		record.Status = types.RetryStatusExhausted
		if err := s.repo.Update(ctx, record); err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"retry_id":   record.ID,
			"payment_id": record.PaymentID,
			"attempts":   record.Attempts,
		}).Error("callback_retry_exhausted")
		return ErrRetryExhausted
	}

	record.NextAttemptAt = now.Add(s.backoffDelay(record.Attempts))
	return s.repo.Update(ctx, record)
}

// MarkFailed terminates a record whose replay hit a permanent failure;
// burning the remaining attempts would never succeed.
func (s *RetryScheduler) MarkFailed(ctx context.Context, retryID uint64, cause error) error {
	record, err := s.mustFind(ctx, retryID)
	if err != nil {
		return err
	}

	record.Status = types.RetryStatusFailed
	record.UpdatedAt = s.clock.Now().UTC()
	if cause != nil {
		msg := truncate(cause.Error(), 1024)
		record.LastError = &msg
	}
	return s.repo.Update(ctx, record)
}

func (s *RetryScheduler) List(ctx context.Context, status types.RetryStatus, limit, offset int32) ([]*entity.RetryRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

func (s *RetryScheduler) mustFind(ctx context.Context, retryID uint64) (*entity.RetryRecord, error) {
	record, err := s.repo.FindByID(ctx, retryID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrInvalidRequest
	}
	return record, nil
}

// backoffDelay computes base * multiplier^attempts with uniform ±jitter,
// capped at the max delay. Jitter spreads redeliveries out after an outage
// so a burst of failures does not come back as a burst of retries.
func (s *RetryScheduler) backoffDelay(attempts int32) time.Duration {
	delay := time.Duration(float64(s.cfg.BaseDelay) * math.Pow(s.cfg.Multiplier, float64(attempts)))
	if delay > s.cfg.MaxDelay || delay <= 0 {
		delay = s.cfg.MaxDelay
	}

	if s.cfg.JitterPct > 0 {
		spread := (rand.Float64()*2 - 1) * s.cfg.JitterPct
		delay = time.Duration(float64(delay) * (1 + spread))
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
