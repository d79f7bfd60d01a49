package model

import "time"

// Showtime is a scheduled screening of a movie in a hall.  Seat
// availability is always evaluated relative to a showtime: the same
// physical seat is independently lockable and bookable per showtime.
// MovieTitle and HallName are joined in for display.
//
// Fields:
//  ID               – primary key identifier.
//  MovieID          – movie being screened.
//  HallID           – hall where the screening takes place.
//  StartsAt         – start time (UTC).
//  TicketPriceCents – adult ticket price in cents.
//  IsActive         – soft-disable flag.
type Showtime struct {
    ID               uint64    `db:"id"`                 // showtimes.id
    MovieID          uint64    `db:"movie_id"`           // showtimes.movie_id
    HallID           uint64    `db:"hall_id"`            // showtimes.hall_id
    StartsAt         time.Time `db:"starts_at"`          // showtimes.starts_at
    TicketPriceCents int64     `db:"ticket_price_cents"` // showtimes.ticket_price_cents
    IsActive         bool      `db:"is_active"`          // showtimes.is_active
    MovieTitle       string    `db:"movie_title"`        // movies.title
    HallName         string    `db:"hall_name"`          // halls.name
}
