package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/luminapay/ms-go-callbacks/app/entity"
	"github.com/luminapay/ms-go-callbacks/app/types"
)

var ErrRetryRecordNotFound = errors.New("retry record not found")

const retryColumns = `id, payment_id, payload, headers_json, attempts, status,
		next_attempt_at, last_error, created_at, updated_at`

type RetryRecordRepository struct {
	db DBTX
}

func NewRetryRecordRepository(db DBTX) *RetryRecordRepository {
	return &RetryRecordRepository{db: db}
}

func (r *RetryRecordRepository) Create(ctx context.Context, record *entity.RetryRecord) error {
	headersJSON, err := serializeHeaders(record.Headers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO retry_records (
			payment_id, payload, headers_json, attempts, status,
			next_attempt_at, last_error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.PaymentID,
		record.Payload,
		headersJSON,
		record.Attempts,
		int32(record.Status),
		record.NextAttemptAt,
		nullableStringValue(record.LastError),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}

func (r *RetryRecordRepository) Update(ctx context.Context, record *entity.RetryRecord) error {
	query := `
		UPDATE retry_records SET
			attempts = ?,
			status = ?,
			next_attempt_at = ?,
			last_error = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		record.Attempts,
		int32(record.Status),
		record.NextAttemptAt,
		nullableStringValue(record.LastError),
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRetryRecordNotFound
	}
	return nil
}

func (r *RetryRecordRepository) FindByID(ctx context.Context, id uint64) (*entity.RetryRecord, error) {
	query := `SELECT ` + retryColumns + ` FROM retry_records WHERE id = ?`

	record := &entity.RetryRecord{}
	if err := scanRetryRecord(r.db.QueryRowContext(ctx, query, id), record); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return record, nil
}

// ListDue returns pending records whose next attempt is due, oldest first.
func (r *RetryRecordRepository) ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.RetryRecord, error) {
	query := `
		SELECT ` + retryColumns + `
		FROM retry_records
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at ASC
		LIMIT ?
	`

	return r.list(ctx, query, int32(types.RetryStatusPending), now, limit)
}

func (r *RetryRecordRepository) ListByStatus(ctx context.Context, status types.RetryStatus, limit, offset int32) ([]*entity.RetryRecord, error) {
	query := `
		SELECT ` + retryColumns + `
		FROM retry_records
		WHERE status = ?
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`

	return r.list(ctx, query, int32(status), limit, offset)
}

func (r *RetryRecordRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.RetryRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*entity.RetryRecord, 0)
	for rows.Next() {
		record := &entity.RetryRecord{}
		if err := scanRetryRecord(rows, record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func scanRetryRecord(row rowScanner, record *entity.RetryRecord) error {
	var (
		status      int32
		headersJSON string
		lastError   sql.NullString
	)

	if err := row.Scan(
		&record.ID,
		&record.PaymentID,
		&record.Payload,
		&headersJSON,
		&record.Attempts,
		&status,
		&record.NextAttemptAt,
		&lastError,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return err
	}

	headers, err := parseHeaders(headersJSON)
	if err != nil {
		return err
	}

	record.Status = types.RetryStatus(status)
	record.Headers = headers
	record.LastError = stringPtrFromNull(lastError)
	return nil
}
