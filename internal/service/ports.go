// Package service implements seat locking, booking commit and the seat map
// on top of the stores declared here.  The MySQL repositories satisfy these
// interfaces in production; tests substitute in-memory fakes.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

// Transactor runs fn atomically.  Store calls made with the ctx passed to
// fn participate in the same transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LockStore persists seat locks.
type LockStore interface {
	FindActive(ctx context.Context, showtimeID uint64, now time.Time) ([]model.SeatLock, error)
	SweepExpired(ctx context.Context, now time.Time) ([]model.SeatLock, error)
	Insert(ctx context.Context, locks []model.SeatLock) error
	DeleteWhere(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string) ([]uint64, error)
}

// BookingStore persists committed bookings.
type BookingStore interface {
	BookedSeatIDs(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error)
	Create(ctx context.Context, b *model.Booking) error
}

// CatalogStore reads showtimes and seats.
type CatalogStore interface {
	GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
	LockShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
	GetHall(ctx context.Context, id uint64) (*model.Hall, error)
	ActiveSeats(ctx context.Context, hallID uint64) ([]model.Seat, error)
	SeatsByIDs(ctx context.Context, hallID uint64, ids []uint64) ([]model.Seat, error)
}

// Notifier receives seat status changes after they are committed.  Calls
// must not block; delivery is best effort.  originSession identifies the
// session whose action caused the change and may be empty for system
// actions such as the expiry sweep.
type Notifier interface {
	SeatStatusChanged(showtimeID uint64, seatIDs []uint64, status model.SeatStatus, originSession string)
}

// BookingPublisher announces confirmed bookings to downstream consumers.
type BookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, s *model.BookingSummary) error
}

type nopNotifier struct{}

func (nopNotifier) SeatStatusChanged(uint64, []uint64, model.SeatStatus, string) {}
