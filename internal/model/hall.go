package model

// Hall represents a screening hall.  Its seat grid is SeatRows x SeatCols;
// individual seats live in the seats table.  Halls are managed by the
// catalog admin flow and are read-only for seat reservation.
type Hall struct {
    ID       uint64 `db:"id"`        // halls.id
    Name     string `db:"name"`      // halls.name
    SeatRows uint32 `db:"seat_rows"` // halls.seat_rows
    SeatCols uint32 `db:"seat_cols"` // halls.seat_cols
    IsActive bool   `db:"is_active"` // halls.is_active
}
