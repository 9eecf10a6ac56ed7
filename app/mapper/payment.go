package mapper

import (
	"time"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/types"
)

func PaymentToResponse(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		ID:                  item.ID,
		OrderID:             item.OrderID,
		Backend:             item.Backend,
		AmountTotalCents:    item.AmountTotalCents,
		AmountPaidCents:     item.AmountPaidCents,
		AmountRefundedCents: item.AmountRefundedCents,
		Currency:            item.Currency,
		Status:              item.Status.String(),
		ExternalReference:   derefString(item.ExternalReference),
		Overpaid:            item.Overpaid,
		Description:         item.Description,
		CallbackToken:       item.CallbackToken,
		CreatedAt:           item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToResponse(items []*entity.Payment) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToResponse(item))
	}
	return result
}

func RetryRecordToResponse(item *entity.RetryRecord) *types.RetryRecord {
	if item == nil {
		return nil
	}

	return &types.RetryRecord{
		ID:            item.ID,
		PaymentID:     item.PaymentID,
		Attempts:      item.Attempts,
		Status:        item.Status.String(),
		NextAttemptAt: item.NextAttemptAt.UTC().Format(time.RFC3339),
		LastError:     derefString(item.LastError),
		CreatedAt:     item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func RetryRecordsToResponse(items []*entity.RetryRecord) []*types.RetryRecord {
	result := make([]*types.RetryRecord, 0, len(items))
	for _, item := range items {
		result = append(result, RetryRecordToResponse(item))
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
