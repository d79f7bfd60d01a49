package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/cinema-box-office/internal/middleware"
	"github.com/iliyamo/cinema-box-office/internal/model"
	"github.com/iliyamo/cinema-box-office/internal/repository"
	"github.com/iliyamo/cinema-box-office/internal/service"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type MockSeatLocker struct{ mock.Mock }

func (m *MockSeatLocker) AcquireLocks(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string, now time.Time) (time.Time, error) {
	args := m.Called(ctx, showtimeID, seatIDs, sessionID, now)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockSeatLocker) ReleaseLocks(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string) ([]uint64, error) {
	args := m.Called(ctx, showtimeID, seatIDs, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint64), args.Error(1)
}

func (m *MockSeatLocker) LockDuration() time.Duration { return 5 * time.Minute }

type MockCommitter struct{ mock.Mock }

func (m *MockCommitter) Commit(ctx context.Context, in service.CommitInput, now time.Time) (*model.BookingSummary, error) {
	args := m.Called(ctx, in, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingSummary), args.Error(1)
}

type MockSeatMapper struct{ mock.Mock }

func (m *MockSeatMapper) Project(ctx context.Context, showtimeID uint64, sessionID string, now time.Time) (*service.SeatMap, error) {
	args := m.Called(ctx, showtimeID, sessionID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SeatMap), args.Error(1)
}

type MockShowtimeReader struct{ mock.Mock }

func (m *MockShowtimeReader) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Showtime), args.Error(1)
}

func (m *MockShowtimeReader) SearchShowtimes(ctx context.Context, q repository.ShowtimeQuery) ([]model.Showtime, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Showtime), args.Get(1).(int64), args.Error(2)
}

type MockCheckoutStore struct{ mock.Mock }

func (m *MockCheckoutStore) Save(ctx context.Context, sessionID string, summary *model.BookingSummary) error {
	return m.Called(ctx, sessionID, summary).Error(0)
}

func (m *MockCheckoutStore) Load(ctx context.Context, sessionID string) (*model.BookingSummary, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingSummary), args.Error(1)
}

// newTestEcho returns an echo instance configured like the server, with
// every request attributed to sessionID.
func newTestEcho(sessionID string) *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetSessionID(c, sessionID)
			return next(c)
		}
	})
	return e
}

func testShowtime() *model.Showtime {
	return &model.Showtime{
		ID:               10,
		MovieID:          3,
		HallID:           1,
		StartsAt:         t0.Add(2 * time.Hour),
		TicketPriceCents: 1500,
		IsActive:         true,
		MovieTitle:       "Heat",
		HallName:         "Hall 1",
	}
}

func testSummary() *model.BookingSummary {
	return &model.BookingSummary{
		BookingID:   7,
		SessionID:   "sess-1",
		ShowtimeID:  10,
		MovieTitle:  "Heat",
		HallName:    "Hall 1",
		StartsAt:    t0.Add(2 * time.Hour),
		SeatIDs:     []uint64{101, 102},
		Seats:       []string{"A1", "A2"},
		TotalCents:  2700,
		ConfirmedAt: t0,
	}
}
