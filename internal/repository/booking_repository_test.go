package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

func TestBookingRepo_BookedSeatIDs(t *testing.T) {
	t.Run("filtered by seats", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT seat_id FROM booking_seats WHERE showtime_id = ? AND seat_id IN (?, ?) ORDER BY seat_id")).
			WithArgs(uint64(10), uint64(101), uint64(102)).
			WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(102))

		booked, err := NewBookingRepo(db).BookedSeatIDs(context.Background(), 10, []uint64{101, 102})
		require.NoError(t, err)
		assert.Equal(t, []uint64{102}, booked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("whole showtime", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT seat_id FROM booking_seats WHERE showtime_id = ? ORDER BY seat_id")).
			WithArgs(uint64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(101).AddRow(102))

		booked, err := NewBookingRepo(db).BookedSeatIDs(context.Background(), 10, nil)
		require.NoError(t, err)
		assert.Equal(t, []uint64{101, 102}, booked)
	})
}

func TestBookingRepo_Create(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	newBooking := func() *model.Booking {
		return &model.Booking{
			SessionID: "sess-a", ShowtimeID: 10, TicketQuantity: 2,
			ChildCount: 1, AdultCount: 1, TotalCents: 2700, BookingDate: now,
			Seats: []model.BookingSeat{{SeatID: 101}, {SeatID: 102}},
		}
	}

	t.Run("inserts booking and seats", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO bookings").
			WithArgs("sess-a", uint64(10), 2, 1, 1, 0, int64(2700), now).
			WillReturnResult(sqlmock.NewResult(55, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_seats (booking_id, showtime_id, seat_id) VALUES (?, ?, ?),(?, ?, ?)")).
			WithArgs(uint64(55), uint64(10), uint64(101), uint64(55), uint64(10), uint64(102)).
			WillReturnResult(sqlmock.NewResult(0, 2))

		b := newBooking()
		require.NoError(t, NewBookingRepo(db).Create(context.Background(), b))
		assert.Equal(t, uint64(55), b.ID)
		assert.Equal(t, uint64(55), b.Seats[1].BookingID)
		assert.Equal(t, uint64(10), b.Seats[1].ShowtimeID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("seat sold twice maps to ErrDuplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(56, 1))
		mock.ExpectExec("INSERT INTO booking_seats").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '10-101'"})

		err := NewBookingRepo(db).Create(context.Background(), newBooking())
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("rejects a booking without seats", func(t *testing.T) {
		db, _ := newMockDB(t)
		b := newBooking()
		b.Seats = nil
		assert.Error(t, NewBookingRepo(db).Create(context.Background(), b))
	})
}
