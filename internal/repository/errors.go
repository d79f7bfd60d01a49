// Package repository holds the MySQL data access layer.  Repositories take
// the open transaction from the context when one is present (see
// TxManager.WithinTx) so that services can compose several calls into a
// single atomic unit.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key.  For
// seat_locks and booking_seats this means another writer claimed the seat
// first.
var ErrDuplicate = errors.New("duplicate entry")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry   = 1062 // ER_DUP_ENTRY
	mysqlLockWaitTimeout  = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlDeadlockDetected = 1213 // ER_LOCK_DEADLOCK
)

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isRetryable reports whether InnoDB aborted the statement over a lock
// conflict.  The transaction has been rolled back (1213) or must be, and
// running it again from the start is safe.
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlDeadlockDetected || me.Number == mysqlLockWaitTimeout
}
