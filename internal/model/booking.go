package model

import "time"

// Booking is the permanent record of seats sold to a session for a
// showtime.  Bookings are append-only for the seat reservation flow.
//
// Fields:
//  ID             – primary key identifier.
//  SessionID      – session that committed the booking.
//  ShowtimeID     – showtime being booked.
//  TicketQuantity – number of tickets, equal to len(Seats).
//  ChildCount, AdultCount, SeniorCount – ticket breakdown.
//  TotalCents     – total price in cents.
//  BookingDate    – commit timestamp (UTC).
type Booking struct {
    ID             uint64        `db:"id"`
    SessionID      string        `db:"session_id"`
    ShowtimeID     uint64        `db:"showtime_id"`
    TicketQuantity int           `db:"ticket_quantity"`
    ChildCount     int           `db:"child_count"`
    AdultCount     int           `db:"adult_count"`
    SeniorCount    int           `db:"senior_count"`
    TotalCents     int64         `db:"total_cents"`
    BookingDate    time.Time     `db:"booking_date"`
    Seats          []BookingSeat `db:"-"`
}

// BookingSeat links a booking to one seat.  ShowtimeID is carried on the
// row so that (showtime_id, seat_id) can be declared unique in storage.
type BookingSeat struct {
    BookingID  uint64 `db:"booking_id"`
    ShowtimeID uint64 `db:"showtime_id"`
    SeatID     uint64 `db:"seat_id"`
}
