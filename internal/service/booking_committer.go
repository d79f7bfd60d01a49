package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/model"
	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/pkg/metrics"
	"github.com/iliyamo/cinema-box-office/internal/repository"
)

// publishTimeout bounds the best-effort broker publish after a commit.
const publishTimeout = 3 * time.Second

// BookingCommitter turns a session's held seats into a booking.  It is the
// only writer of bookings and booking_seats.
type BookingCommitter struct {
	tx       Transactor
	locks    LockStore
	bookings BookingStore
	catalog  CatalogStore

	notifier  Notifier
	publisher BookingPublisher
	metrics   *metrics.Metrics
}

type CommitterOption func(*BookingCommitter)

func WithCommitNotifier(n Notifier) CommitterOption {
	return func(c *BookingCommitter) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithPublisher announces each confirmed booking.  Publish errors are
// logged and never fail the commit.
func WithPublisher(p BookingPublisher) CommitterOption {
	return func(c *BookingCommitter) { c.publisher = p }
}

func WithCommitMetrics(mt *metrics.Metrics) CommitterOption {
	return func(c *BookingCommitter) {
		if mt != nil {
			c.metrics = mt
		}
	}
}

func NewBookingCommitter(tx Transactor, locks LockStore, bookings BookingStore, catalog CatalogStore, opts ...CommitterOption) *BookingCommitter {
	c := &BookingCommitter{
		tx:       tx,
		locks:    locks,
		bookings: bookings,
		catalog:  catalog,
		notifier: nopNotifier{},
		metrics:  metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CommitInput is a checkout request for one showtime.
type CommitInput struct {
	ShowtimeID uint64
	SessionID  string
	SeatIDs    []uint64
	Tickets    TicketCounts
}

// Commit books the seats for the session.  The session must hold a live
// lock on every seat; seats already booked for the showtime are rejected
// with their labels.  On success the session's locks on those seats are
// removed in the same transaction.
func (c *BookingCommitter) Commit(ctx context.Context, in CommitInput, now time.Time) (*model.BookingSummary, error) {
	ids := uniqueIDs(in.SeatIDs)
	if len(ids) == 0 {
		c.metrics.BookingCommits.WithLabelValues("invalid").Inc()
		return nil, ErrNoSeatsSelected
	}
	if !in.Tickets.Valid() || in.Tickets.Total() != len(ids) {
		c.metrics.BookingCommits.WithLabelValues("invalid").Inc()
		return nil, ErrTicketCountMismatch
	}

	var summary *model.BookingSummary
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := c.catalog.LockShowtime(ctx, in.ShowtimeID); err != nil {
			return showtimeError(err)
		}
		st, err := c.catalog.GetShowtime(ctx, in.ShowtimeID)
		if err != nil {
			return showtimeError(err)
		}
		labels, err := hallSeatLabels(ctx, c.catalog, st.HallID, ids)
		if err != nil {
			return err
		}

		booked, err := c.bookings.BookedSeatIDs(ctx, in.ShowtimeID, ids)
		if err != nil {
			return err
		}
		if len(booked) > 0 {
			return conflict(ErrSeatAlreadyBooked, labelsFor(labels, booked))
		}

		active, err := c.locks.FindActive(ctx, in.ShowtimeID, now)
		if err != nil {
			return err
		}
		mine := make(map[uint64]bool, len(active))
		for _, l := range active {
			if l.SessionID == in.SessionID && l.Live(now) {
				mine[l.SeatID] = true
			}
		}
		var notHeld []uint64
		for _, id := range ids {
			if !mine[id] {
				notHeld = append(notHeld, id)
			}
		}
		if len(notHeld) > 0 {
			return conflict(ErrSeatNotHeld, labelsFor(labels, notHeld))
		}

		quote := Price(st.TicketPriceCents, in.Tickets, len(ids))
		b := &model.Booking{
			SessionID:      in.SessionID,
			ShowtimeID:     in.ShowtimeID,
			TicketQuantity: len(ids),
			ChildCount:     in.Tickets.Child,
			AdultCount:     in.Tickets.Adult,
			SeniorCount:    in.Tickets.Senior,
			TotalCents:     quote.SubtotalCents,
			BookingDate:    now,
			Seats:          make([]model.BookingSeat, len(ids)),
		}
		for i, id := range ids {
			b.Seats[i] = model.BookingSeat{ShowtimeID: in.ShowtimeID, SeatID: id}
		}
		if err := c.bookings.Create(ctx, b); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict(ErrSeatAlreadyBooked, labelsFor(labels, ids))
			}
			return fmt.Errorf("create booking: %w", err)
		}

		if _, err := c.locks.DeleteWhere(ctx, in.ShowtimeID, ids, in.SessionID); err != nil {
			return err
		}

		summary = &model.BookingSummary{
			BookingID:   b.ID,
			SessionID:   in.SessionID,
			ShowtimeID:  in.ShowtimeID,
			MovieTitle:  st.MovieTitle,
			HallName:    st.HallName,
			StartsAt:    st.StartsAt,
			SeatIDs:     ids,
			Seats:       labelsFor(labels, ids),
			Lines:       quote.Lines,
			TotalCents:  quote.SubtotalCents,
			ConfirmedAt: now,
		}
		return nil
	})
	if err != nil {
		c.metrics.BookingCommits.WithLabelValues(commitResult(err)).Inc()
		return nil, err
	}

	c.metrics.BookingCommits.WithLabelValues("success").Inc()
	c.notifier.SeatStatusChanged(in.ShowtimeID, ids, model.SeatBooked, in.SessionID)
	c.publish(ctx, summary)
	return summary, nil
}

func (c *BookingCommitter) publish(ctx context.Context, s *model.BookingSummary) {
	if c.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.publisher.PublishBookingConfirmed(ctx, s); err != nil {
		logger.Warn("booking confirmed event not published",
			zap.Uint64("booking_id", s.BookingID),
			zap.Error(err),
		)
	}
}

func commitResult(err error) string {
	switch {
	case errors.Is(err, ErrSeatAlreadyBooked):
		return "already_booked"
	case errors.Is(err, ErrSeatNotHeld):
		return "not_held"
	case errors.Is(err, ErrInvalidSeat), errors.Is(err, ErrShowtimeNotFound):
		return "invalid"
	default:
		return "error"
	}
}
