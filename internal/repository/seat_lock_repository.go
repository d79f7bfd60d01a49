package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

const seatLockColumns = `id, showtime_id, seat_id, session_id, locked_at, expires_at`

// SeatLockRepo provides data access to the seat_locks table.  It holds no
// business rules: conflict detection and hold duration belong to the
// service layer.  Every read takes now explicitly so expired rows are
// filtered out even before the sweep deletes them.
type SeatLockRepo struct {
	db *sqlx.DB
}

// NewSeatLockRepo returns a SeatLockRepo bound to the provided database.
func NewSeatLockRepo(db *sqlx.DB) *SeatLockRepo { return &SeatLockRepo{db: db} }

// FindActive returns the live locks for a showtime, ordered by seat.
func (r *SeatLockRepo) FindActive(ctx context.Context, showtimeID uint64, now time.Time) ([]model.SeatLock, error) {
	q := `SELECT ` + seatLockColumns + ` FROM seat_locks
	      WHERE showtime_id = ? AND expires_at > ?
	      ORDER BY seat_id`
	var locks []model.SeatLock
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &locks, q, showtimeID, now.UTC()); err != nil {
		return nil, fmt.Errorf("find active locks: %w", err)
	}
	return locks, nil
}

// SweepExpired deletes every lock with expires_at <= now across all
// showtimes and returns the removed rows.
//
// The candidates come from a plain snapshot read and are deleted by primary
// key with the expiry repeated, so the sweep never takes gap locks on the
// expiry index.  Those gap locks would make two acquires on different
// showtimes deadlock on their inserts.  A lock renewed in between gets a new
// id and is left alone.
func (r *SeatLockRepo) SweepExpired(ctx context.Context, now time.Time) ([]model.SeatLock, error) {
	ext := executor(ctx, r.db)
	q := `SELECT ` + seatLockColumns + ` FROM seat_locks WHERE expires_at <= ? ORDER BY id`
	var expired []model.SeatLock
	if err := sqlx.SelectContext(ctx, ext, &expired, q, now.UTC()); err != nil {
		return nil, fmt.Errorf("select expired locks: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]uint64, len(expired))
	for i, l := range expired {
		ids[i] = l.ID
	}
	del, args, err := inQuery(ext, `DELETE FROM seat_locks WHERE id IN (?) AND expires_at <= ?`, ids, now.UTC())
	if err != nil {
		return nil, err
	}
	if _, err := ext.ExecContext(ctx, del, args...); err != nil {
		return nil, fmt.Errorf("delete expired locks: %w", err)
	}
	return expired, nil
}

// Insert adds the given locks in one statement.  A unique-key violation on
// (showtime_id, seat_id) is reported as ErrDuplicate.  Passing an empty
// slice has no effect.
func (r *SeatLockRepo) Insert(ctx context.Context, locks []model.SeatLock) error {
	if len(locks) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO seat_locks (showtime_id, seat_id, session_id, locked_at, expires_at) VALUES `)
	args := make([]interface{}, 0, len(locks)*5)
	for i, l := range locks {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, l.ShowtimeID, l.SeatID, l.SessionID, l.LockedAt.UTC(), l.ExpiresAt.UTC())
	}
	if _, err := executor(ctx, r.db).ExecContext(ctx, sb.String(), args...); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert seat locks: %w", err)
	}
	return nil
}

// DeleteWhere removes the session's locks on seatIDs for a showtime and
// returns the seat ids actually released.  Locks owned by other sessions
// are never touched.  An empty seatIDs releases every lock the session
// holds for the showtime.  Like SweepExpired it deletes by primary key
// after a plain read, so no gap locks are taken on the session index.
func (r *SeatLockRepo) DeleteWhere(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string) ([]uint64, error) {
	ext := executor(ctx, r.db)

	sel := `SELECT id, seat_id FROM seat_locks WHERE showtime_id = ? AND session_id = ?`
	args := []interface{}{showtimeID, sessionID}
	if len(seatIDs) > 0 {
		sel += ` AND seat_id IN (?)`
		args = append(args, seatIDs)
	}

	q, qargs, err := inQuery(ext, sel+` ORDER BY seat_id`, args...)
	if err != nil {
		return nil, err
	}
	var owned []model.SeatLock
	if err := sqlx.SelectContext(ctx, ext, &owned, q, qargs...); err != nil {
		return nil, fmt.Errorf("select session locks: %w", err)
	}
	if len(owned) == 0 {
		return nil, nil
	}

	ids := make([]uint64, len(owned))
	released := make([]uint64, len(owned))
	for i, l := range owned {
		ids[i] = l.ID
		released[i] = l.SeatID
	}
	q, qargs, err = inQuery(ext, `DELETE FROM seat_locks WHERE id IN (?) AND session_id = ?`, ids, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := ext.ExecContext(ctx, q, qargs...); err != nil {
		return nil, fmt.Errorf("delete session locks: %w", err)
	}
	return released, nil
}
