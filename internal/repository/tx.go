package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
)

// maxTxAttempts bounds how often WithinTx runs fn when InnoDB aborts it
// with a deadlock or lock wait timeout.
const maxTxAttempts = 3

type txKey struct{}

// TxManager opens transactions and carries them through the context so that
// repository calls made inside WithinTx share one *sqlx.Tx.
type TxManager struct {
	db      *sqlx.DB
	backoff time.Duration
}

// NewTxManager returns a TxManager bound to db.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db, backoff: 15 * time.Millisecond}
}

// WithinTx runs fn inside a transaction.  The transaction commits when fn
// returns nil and rolls back otherwise.  Nested calls join the outer
// transaction.
//
// When MySQL aborts the transaction with a deadlock (1213) or a lock wait
// timeout (1205), the whole of fn is run again in a fresh transaction, up
// to maxTxAttempts times.  fn must therefore not keep state from a failed
// attempt.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	for attempt := 1; ; attempt++ {
		err := m.runTx(ctx, fn)
		if err == nil || !isRetryable(err) || attempt == maxTxAttempts {
			return err
		}
		logger.Warn("transaction aborted by lock conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		t := time.NewTimer(time.Duration(attempt) * m.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

func (m *TxManager) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// executor returns the transaction carried by ctx, or db when there is none.
func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// inQuery expands IN (?) placeholders for args and rebinds for the driver.
func inQuery(ext sqlx.ExtContext, query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return ext.Rebind(q), a, nil
}
