package model

import "time"

// SeatLock is a time-bounded claim by one session on one seat for one
// showtime.  At most one live lock may exist per (showtime, seat).  A lock
// whose ExpiresAt is not after the current time is dead and must be treated
// as absent even before the sweep deletes the row.
type SeatLock struct {
    ID         uint64    `db:"id"`          // seat_locks.id
    ShowtimeID uint64    `db:"showtime_id"` // seat_locks.showtime_id
    SeatID     uint64    `db:"seat_id"`     // seat_locks.seat_id
    SessionID  string    `db:"session_id"`  // seat_locks.session_id
    LockedAt   time.Time `db:"locked_at"`   // seat_locks.locked_at
    ExpiresAt  time.Time `db:"expires_at"`  // seat_locks.expires_at
}

// Live reports whether the lock still holds at now.
func (l SeatLock) Live(now time.Time) bool {
    return l.ExpiresAt.After(now)
}
