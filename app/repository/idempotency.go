package repository

import (
	"context"
	"time"
)

// AppliedKeyRepository is the durable record of dedup keys that have been
// applied to a payment. The unique index on (payment_id, dedup_key) is the
// actual idempotency guarantee; Exists is only the cheap pre-check.
type AppliedKeyRepository struct {
	db DBTX
}

func NewAppliedKeyRepository(db DBTX) *AppliedKeyRepository {
	return &AppliedKeyRepository{db: db}
}

func (r *AppliedKeyRepository) Exists(ctx context.Context, paymentID uint64, dedupKey string) (bool, error) {
	query := `SELECT COUNT(1) FROM payment_applied_keys WHERE payment_id = ? AND dedup_key = ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, paymentID, dedupKey).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AppliedKeyRepository) Record(ctx context.Context, paymentID uint64, dedupKey string, now time.Time) error {
	query := `INSERT INTO payment_applied_keys (payment_id, dedup_key, created_at) VALUES (?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, paymentID, dedupKey, now); err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}
