package service

import (
	"errors"
	"strings"
)

var (
	ErrNoSeatsSelected     = errors.New("no seats selected")
	ErrTicketCountMismatch = errors.New("ticket count does not match selected seats")
	ErrShowtimeNotFound    = errors.New("showtime not found")
	ErrInvalidSeat         = errors.New("seat does not belong to the showtime's hall")
	ErrSeatAlreadyBooked   = errors.New("seat already booked")
	ErrSeatHeldByOther     = errors.New("seat held by another session")
	ErrSeatNotHeld         = errors.New("seat lock expired or not held")
)

// SeatConflictError names the seats behind a seat-level failure.  It
// unwraps to one of the sentinel errors above.
type SeatConflictError struct {
	Err   error
	Seats []string
}

func (e *SeatConflictError) Error() string {
	if len(e.Seats) == 0 {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + strings.Join(e.Seats, ", ")
}

func (e *SeatConflictError) Unwrap() error { return e.Err }

// ConflictSeats returns the seat labels carried by err, if any.
func ConflictSeats(err error) []string {
	var ce *SeatConflictError
	if errors.As(err, &ce) {
		return ce.Seats
	}
	return nil
}

func conflict(sentinel error, seats []string) error {
	return &SeatConflictError{Err: sentinel, Seats: seats}
}
