package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/factory"
	"github.com/luminapay/ms-go-callbacks/app/gateway"
	"github.com/luminapay/ms-go-callbacks/app/types"
	"github.com/luminapay/ms-go-callbacks/config"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(100)
)

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	FindByCallbackToken(ctx context.Context, token string) (*entity.Payment, error)
	ListByOrderID(ctx context.Context, orderID string, limit, offset int32) ([]*entity.Payment, error)
	UpdateStatus(ctx context.Context, id uint64, version int64, status types.PaymentStatus, now time.Time) error
	ApplyTransition(ctx context.Context, payment *entity.Payment, dedupKey string, event *entity.PaymentEvent) error
}

type appliedKeyRepository interface {
	Exists(ctx context.Context, paymentID uint64, dedupKey string) (bool, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type paymentCallbackRepository interface {
	Create(ctx context.Context, callback *entity.PaymentCallback) error
}

type PaymentService struct {
	paymentRepo  paymentRepository
	keyRepo      appliedKeyRepository
	eventRepo    paymentEventRepository
	callbackRepo paymentCallbackRepository
	scheduler    *RetryScheduler
	gatewayReg   *gateway.Registry
	locks        *keyLocks
	jobsCfg      config.JobsConfig
	logger       logrus.FieldLogger
}

func NewPaymentService(
	paymentRepo paymentRepository,
	keyRepo appliedKeyRepository,
	eventRepo paymentEventRepository,
	callbackRepo paymentCallbackRepository,
	scheduler *RetryScheduler,
	gatewayReg *gateway.Registry,
	jobsCfg config.JobsConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo:  paymentRepo,
		keyRepo:      keyRepo,
		eventRepo:    eventRepo,
		callbackRepo: callbackRepo,
		scheduler:    scheduler,
		gatewayReg:   gatewayReg,
		locks:        newKeyLocks(),
		jobsCfg:      jobsCfg,
		logger:       factory.NewModuleLogger("payments-service"),
	}
}

func (s *PaymentService) batchSize() int32 {
	if s.jobsCfg.BatchSize > 0 {
		return s.jobsCfg.BatchSize
	}
	return defaultBatchSize
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
