package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/model"
	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/pkg/metrics"
	"github.com/iliyamo/cinema-box-office/internal/repository"
)

// DefaultLockDuration is how long a seat stays held without renewal.
const DefaultLockDuration = 5 * time.Minute

// LockManager enforces that at most one session holds a live lock on a
// seat for a showtime.  Every acquire runs in one transaction that starts by
// locking the showtime row, so concurrent acquires and commits for the same
// showtime are serialised by the database.
type LockManager struct {
	tx       Transactor
	locks    LockStore
	bookings BookingStore
	catalog  CatalogStore

	notifier     Notifier
	metrics      *metrics.Metrics
	lockDuration time.Duration
}

type LockManagerOption func(*LockManager)

// WithLockDuration overrides DefaultLockDuration.
func WithLockDuration(d time.Duration) LockManagerOption {
	return func(m *LockManager) {
		if d > 0 {
			m.lockDuration = d
		}
	}
}

func WithLockNotifier(n Notifier) LockManagerOption {
	return func(m *LockManager) {
		if n != nil {
			m.notifier = n
		}
	}
}

func WithLockMetrics(mt *metrics.Metrics) LockManagerOption {
	return func(m *LockManager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

func NewLockManager(tx Transactor, locks LockStore, bookings BookingStore, catalog CatalogStore, opts ...LockManagerOption) *LockManager {
	m := &LockManager{
		tx:           tx,
		locks:        locks,
		bookings:     bookings,
		catalog:      catalog,
		notifier:     nopNotifier{},
		metrics:      metrics.NewNop(),
		lockDuration: DefaultLockDuration,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LockDuration is the hold time granted by AcquireLocks.
func (m *LockManager) LockDuration() time.Duration { return m.lockDuration }

// AcquireLocks makes sessionID the exclusive holder of seatIDs for the
// showtime until the returned expiry.  Seats the session already holds are
// renewed.  The batch is all-or-nothing: on any error no lock is created or
// renewed.
func (m *LockManager) AcquireLocks(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string, now time.Time) (time.Time, error) {
	ids := uniqueIDs(seatIDs)
	if len(ids) == 0 {
		m.metrics.SeatLockAttempts.WithLabelValues("invalid").Inc()
		return time.Time{}, ErrNoSeatsSelected
	}
	expiresAt := now.Add(m.lockDuration)

	var swept []model.SeatLock
	err := m.tx.WithinTx(ctx, func(ctx context.Context) error {
		st, err := m.catalog.LockShowtime(ctx, showtimeID)
		if err != nil {
			return showtimeError(err)
		}
		labels, err := hallSeatLabels(ctx, m.catalog, st.HallID, ids)
		if err != nil {
			return err
		}

		swept, err = m.locks.SweepExpired(ctx, now)
		if err != nil {
			return err
		}

		booked, err := m.bookings.BookedSeatIDs(ctx, showtimeID, ids)
		if err != nil {
			return err
		}
		if len(booked) > 0 {
			return conflict(ErrSeatAlreadyBooked, labelsFor(labels, booked))
		}

		if _, err := m.locks.DeleteWhere(ctx, showtimeID, ids, sessionID); err != nil {
			return err
		}

		active, err := m.locks.FindActive(ctx, showtimeID, now)
		if err != nil {
			return err
		}
		want := idSet(ids)
		var held []uint64
		for _, l := range active {
			if want[l.SeatID] && l.SessionID != sessionID && l.Live(now) {
				held = append(held, l.SeatID)
			}
		}
		if len(held) > 0 {
			return conflict(ErrSeatHeldByOther, labelsFor(labels, held))
		}

		fresh := make([]model.SeatLock, len(ids))
		for i, id := range ids {
			fresh[i] = model.SeatLock{
				ShowtimeID: showtimeID,
				SeatID:     id,
				SessionID:  sessionID,
				LockedAt:   now,
				ExpiresAt:  expiresAt,
			}
		}
		if err := m.locks.Insert(ctx, fresh); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict(ErrSeatHeldByOther, labelsFor(labels, ids))
			}
			return err
		}
		return nil
	})
	if err != nil {
		m.metrics.SeatLockAttempts.WithLabelValues(lockResult(err)).Inc()
		return time.Time{}, err
	}

	m.metrics.SeatLockAttempts.WithLabelValues("success").Inc()
	m.notifier.SeatStatusChanged(showtimeID, ids, model.SeatLocked, sessionID)
	m.announceSwept(swept)
	return expiresAt, nil
}

// ReleaseLocks deletes the session's locks on seatIDs for the showtime and
// returns the seats actually released.  Locks held by other sessions are
// never touched and releasing nothing is not an error.  An empty seatIDs
// releases everything the session holds for the showtime.
func (m *LockManager) ReleaseLocks(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string) ([]uint64, error) {
	ids := uniqueIDs(seatIDs)

	var released []uint64
	err := m.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		released, err = m.locks.DeleteWhere(ctx, showtimeID, ids, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(released) > 0 {
		m.metrics.SeatsReleased.WithLabelValues("release").Add(float64(len(released)))
		m.notifier.SeatStatusChanged(showtimeID, released, model.SeatAvailable, sessionID)
	}
	return released, nil
}

// SweepExpired deletes every lock that expired at or before now and tells
// watchers the seats are available again.  It returns the number of locks
// removed.
func (m *LockManager) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	var swept []model.SeatLock
	err := m.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		swept, err = m.locks.SweepExpired(ctx, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	m.announceSwept(swept)
	return len(swept), nil
}

func (m *LockManager) announceSwept(swept []model.SeatLock) {
	if len(swept) == 0 {
		return
	}
	m.metrics.SeatsReleased.WithLabelValues("sweep").Add(float64(len(swept)))

	byShowtime := make(map[uint64][]uint64)
	for _, l := range swept {
		byShowtime[l.ShowtimeID] = append(byShowtime[l.ShowtimeID], l.SeatID)
	}
	for showtimeID, seats := range byShowtime {
		logger.Debug("expired seat locks swept",
			zap.Uint64("showtime_id", showtimeID),
			zap.Int("seats", len(seats)),
		)
		m.notifier.SeatStatusChanged(showtimeID, seats, model.SeatAvailable, "")
	}
}

func lockResult(err error) string {
	switch {
	case errors.Is(err, ErrSeatHeldByOther):
		return "held_by_other"
	case errors.Is(err, ErrSeatAlreadyBooked):
		return "already_booked"
	case errors.Is(err, ErrInvalidSeat), errors.Is(err, ErrShowtimeNotFound):
		return "invalid"
	default:
		return "error"
	}
}

// showtimeError maps a missing showtime to ErrShowtimeNotFound.
func showtimeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrShowtimeNotFound
	}
	return fmt.Errorf("lock showtime: %w", err)
}

// hallSeatLabels checks that every id is an active seat of the hall and
// returns their labels keyed by id.
func hallSeatLabels(ctx context.Context, catalog CatalogStore, hallID uint64, ids []uint64) (map[uint64]string, error) {
	seats, err := catalog.SeatsByIDs(ctx, hallID, ids)
	if err != nil {
		return nil, err
	}
	labels := make(map[uint64]string, len(seats))
	for _, s := range seats {
		labels[s.ID] = s.Label()
	}
	var missing []string
	for _, id := range ids {
		if _, ok := labels[id]; !ok {
			missing = append(missing, strconv.FormatUint(id, 10))
		}
	}
	if len(missing) > 0 {
		return nil, conflict(ErrInvalidSeat, missing)
	}
	return labels, nil
}

func labelsFor(labels map[uint64]string, ids []uint64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if l, ok := labels[id]; ok {
			out = append(out, l)
		} else {
			out = append(out, strconv.FormatUint(id, 10))
		}
	}
	sort.Strings(out)
	return out
}

// uniqueIDs drops zero and repeated ids, keeping first-seen order.
func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func idSet(ids []uint64) map[uint64]bool {
	set := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
