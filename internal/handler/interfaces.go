package handler

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-box-office/internal/model"
	"github.com/iliyamo/cinema-box-office/internal/repository"
	"github.com/iliyamo/cinema-box-office/internal/service"
)

// SeatLocker is the lock lifecycle used by seat selection.
type SeatLocker interface {
	AcquireLocks(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string, now time.Time) (time.Time, error)
	ReleaseLocks(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string) ([]uint64, error)
	LockDuration() time.Duration
}

// Committer turns held seats into a booking.
type Committer interface {
	Commit(ctx context.Context, in service.CommitInput, now time.Time) (*model.BookingSummary, error)
}

// SeatMapper projects the seat plan for one session.
type SeatMapper interface {
	Project(ctx context.Context, showtimeID uint64, sessionID string, now time.Time) (*service.SeatMap, error)
}

// ShowtimeReader loads an active showtime.
type ShowtimeReader interface {
	GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
}

// ShowtimeCatalog backs the public showtime endpoints.
type ShowtimeCatalog interface {
	ShowtimeReader
	SearchShowtimes(ctx context.Context, q repository.ShowtimeQuery) ([]model.Showtime, int64, error)
}

// CheckoutStore keeps the last booking summary of a session.
type CheckoutStore interface {
	Save(ctx context.Context, sessionID string, summary *model.BookingSummary) error
	Load(ctx context.Context, sessionID string) (*model.BookingSummary, error)
}
