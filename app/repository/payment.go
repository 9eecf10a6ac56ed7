package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/types"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")

	// ErrVersionConflict means the payment row changed under us; the caller
	// must re-read and re-apply inside its serialized scope.
	ErrVersionConflict = errors.New("payment version conflict")

	// ErrDuplicateKey means the dedup key was already recorded for this
	// payment; the event was applied by an earlier (or racing) delivery.
	ErrDuplicateKey = errors.New("idempotency key already applied")
)

const paymentColumns = `id, order_id, backend, callback_token,
		amount_total_cents, amount_paid_cents, amount_refunded_cents, currency,
		status, external_reference, overpaid, description,
		success_url, failure_url, version, created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			order_id, backend, callback_token,
			amount_total_cents, amount_paid_cents, amount_refunded_cents, currency,
			status, external_reference, overpaid, description,
			success_url, failure_url, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.OrderID,
		payment.Backend,
		payment.CallbackToken,
		payment.AmountTotalCents,
		payment.AmountPaidCents,
		payment.AmountRefundedCents,
		payment.Currency,
		int32(payment.Status),
		nullableStringValue(payment.ExternalReference),
		payment.Overpaid,
		payment.Description,
		payment.SuccessURL,
		payment.FailureURL,
		payment.Version,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *PaymentRepository) FindByCallbackToken(ctx context.Context, token string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE callback_token = ? LIMIT 1`
	return r.findOne(ctx, query, token)
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Payment, error) {
	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, args...), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) ListByOrderID(ctx context.Context, orderID string, limit, offset int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, orderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

// Update writes the payment guarded by its version token and bumps the
// version. ErrVersionConflict covers both a stale token and a missing row;
// callers re-read to tell the difference.
func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	if err := updatePayment(ctx, r.db, payment); err != nil {
		return err
	}
	payment.Version++
	return nil
}

// UpdateStatus is the convenience form for transitions that touch no amounts
// (cancellation, expiry).
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uint64, version int64, status types.PaymentStatus, now time.Time) error {
	query := `
		UPDATE payments SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query, int32(status), now, id, version)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ApplyTransition persists one accepted state transition atomically: the
// guarded payment update, the idempotency key, and the audit event commit or
// roll back together. A duplicate dedup key aborts with ErrDuplicateKey,
// which makes racing deliveries of the same fact safe.
func (r *PaymentRepository) ApplyTransition(ctx context.Context, payment *entity.Payment, dedupKey string, event *entity.PaymentEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := applyTransitionInTx(ctx, tx, payment, dedupKey, event); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	payment.Version++
	return nil
}

func applyTransitionInTx(ctx context.Context, tx DBTX, payment *entity.Payment, dedupKey string, event *entity.PaymentEvent) error {
	if err := NewAppliedKeyRepository(tx).Record(ctx, payment.ID, dedupKey, payment.UpdatedAt); err != nil {
		return err
	}
	if err := updatePayment(ctx, tx, payment); err != nil {
		return err
	}
	return NewPaymentEventRepository(tx).Create(ctx, event)
}

func updatePayment(ctx context.Context, db DBTX, payment *entity.Payment) error {
	query := `
		UPDATE payments SET
			amount_total_cents = ?,
			amount_paid_cents = ?,
			amount_refunded_cents = ?,
			status = ?,
			external_reference = ?,
			overpaid = ?,
			description = ?,
			success_url = ?,
			failure_url = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := db.ExecContext(ctx, query,
		payment.AmountTotalCents,
		payment.AmountPaidCents,
		payment.AmountRefundedCents,
		int32(payment.Status),
		nullableStringValue(payment.ExternalReference),
		payment.Overpaid,
		payment.Description,
		payment.SuccessURL,
		payment.FailureURL,
		payment.UpdatedAt,
		payment.ID,
		payment.Version,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func scanPayment(row rowScanner, payment *entity.Payment) error {
	var (
		status            int32
		externalReference sql.NullString
	)

	if err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Backend,
		&payment.CallbackToken,
		&payment.AmountTotalCents,
		&payment.AmountPaidCents,
		&payment.AmountRefundedCents,
		&payment.Currency,
		&status,
		&externalReference,
		&payment.Overpaid,
		&payment.Description,
		&payment.SuccessURL,
		&payment.FailureURL,
		&payment.Version,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		return err
	}

	payment.Status = types.PaymentStatus(status)
	payment.ExternalReference = stringPtrFromNull(externalReference)
	return nil
}
