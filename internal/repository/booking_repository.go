package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

// BookingRepo persists bookings and their seats.  booking_seats carries a
// unique key on (showtime_id, seat_id), so a seat can be sold at most once
// per showtime whatever the callers check beforehand.
type BookingRepo struct {
	db *sqlx.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookedSeatIDs returns the seats already sold for a showtime.  When
// seatIDs is non-empty only those seats are checked.
func (r *BookingRepo) BookedSeatIDs(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	ext := executor(ctx, r.db)
	q := `SELECT seat_id FROM booking_seats WHERE showtime_id = ?`
	args := []interface{}{showtimeID}
	if len(seatIDs) > 0 {
		q += ` AND seat_id IN (?)`
		args = append(args, seatIDs)
	}
	q, args, err := inQuery(ext, q+` ORDER BY seat_id`, args...)
	if err != nil {
		return nil, err
	}
	var booked []uint64
	if err := sqlx.SelectContext(ctx, ext, &booked, q, args...); err != nil {
		return nil, fmt.Errorf("select booked seats: %w", err)
	}
	return booked, nil
}

// Create inserts the booking row followed by one booking_seats row per
// seat.  The generated ID is written back to b and to each of b.Seats.  A
// seat already sold for the showtime is reported as ErrDuplicate.  Callers
// should run Create inside a transaction so a failed seat insert also
// discards the booking row.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if len(b.Seats) == 0 {
		return errors.New("booking has no seats")
	}
	ext := executor(ctx, r.db)

	const q = `INSERT INTO bookings
	           (session_id, showtime_id, ticket_quantity, child_count, adult_count, senior_count, total_cents, booking_date)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := ext.ExecContext(ctx, q,
		b.SessionID, b.ShowtimeID, b.TicketQuantity,
		b.ChildCount, b.AdultCount, b.SeniorCount,
		b.TotalCents, b.BookingDate.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking id: %w", err)
	}
	b.ID = uint64(id)

	var sb strings.Builder
	sb.WriteString(`INSERT INTO booking_seats (booking_id, showtime_id, seat_id) VALUES `)
	args := make([]interface{}, 0, len(b.Seats)*3)
	for i := range b.Seats {
		b.Seats[i].BookingID = b.ID
		b.Seats[i].ShowtimeID = b.ShowtimeID
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?)")
		args = append(args, b.ID, b.ShowtimeID, b.Seats[i].SeatID)
	}
	if _, err := ext.ExecContext(ctx, sb.String(), args...); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert booking seats: %w", err)
	}
	return nil
}
