package model

import "strconv"

// Seat describes a physical seat in a hall.  Seats are uniquely
// identified within their hall by row label and seat number, which
// together form the display label (e.g. "A5").  Only the premium,
// wheelchair and active flags change after creation.
//
// Fields:
//  ID         – primary key identifier.
//  HallID     – hall to which this seat belongs.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – number of the seat within the row.
//  Premium    – seat is sold as premium.
//  Wheelchair – seat is a wheelchair space.
//  IsActive   – inactive seats are hidden from seat maps and cannot be locked.
type Seat struct {
    ID         uint64 `db:"id"`          // seats.id
    HallID     uint64 `db:"hall_id"`     // seats.hall_id
    RowLabel   string `db:"row_label"`   // seats.row_label
    SeatNumber uint32 `db:"seat_number"` // seats.seat_number
    Premium    bool   `db:"premium"`     // seats.premium
    Wheelchair bool   `db:"wheelchair"`  // seats.wheelchair
    IsActive   bool   `db:"is_active"`   // seats.is_active
}

// Label returns the seat identifier shown to customers, e.g. "A5".
func (s Seat) Label() string {
    return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}
