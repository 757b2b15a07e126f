package tx

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

// Manager runs functions inside a database transaction, retrying when the
// database reports a serialization conflict.
type Manager struct {
	DB        *sql.DB
	Isolation sql.IsolationLevel
}

const maxRetries = 5

var ErrRetryExhausted = errors.New("transaction retry exhausted")

func (m *Manager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context, tx *sql.Tx) error,
) error {

	for i := 0; i < maxRetries; i++ {

		tx, err := m.DB.BeginTx(ctx, &sql.TxOptions{Isolation: m.Isolation})
		if err != nil {
			if isRetryable(err) {
				continue
			}
			return err
		}

		err = fn(ctx, tx)
		if err != nil {
			_ = tx.Rollback()
			if isRetryable(err) {
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if isRetryable(err) {
				continue
			}
			return err
		}

		return nil
	}

	return ErrRetryExhausted
}

// Postgres SQLSTATEs worth another attempt.
const (
	serializationFailure pq.ErrorCode = "40001"
	deadlockDetected     pq.ErrorCode = "40P01"
)

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == serializationFailure || pqErr.Code == deadlockDetected
	}
	msg := err.Error()
	return strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "database is locked")
}
