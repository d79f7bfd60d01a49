package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-box-office/internal/model"
	"github.com/iliyamo/cinema-box-office/internal/repository"
)

type inTxKey struct{}

// memStore is an in-memory stand-in for the MySQL repositories.  WithinTx
// serialises transactions and restores the previous state when fn fails.
// Insert and Create enforce the same unique keys as the schema.
type memStore struct {
	mu        sync.Mutex
	showtimes map[uint64]model.Showtime
	halls     map[uint64]model.Hall
	seats     map[uint64]model.Seat
	locks     []model.SeatLock
	bookings  []model.Booking
	nextID    uint64

	createErr error
}

func newMemStore() *memStore {
	s := &memStore{
		showtimes: map[uint64]model.Showtime{
			10: {ID: 10, MovieID: 1, HallID: 1, TicketPriceCents: 1500, IsActive: true, MovieTitle: "Metropolis", HallName: "Hall 1",
				StartsAt: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)},
			11: {ID: 11, MovieID: 1, HallID: 1, TicketPriceCents: 1500, IsActive: true, MovieTitle: "Metropolis", HallName: "Hall 1"},
			12: {ID: 12, MovieID: 1, HallID: 1, TicketPriceCents: 1500, IsActive: false},
		},
		halls: map[uint64]model.Hall{
			1: {ID: 1, Name: "Hall 1", SeatRows: 2, SeatCols: 3, IsActive: true},
		},
		seats: map[uint64]model.Seat{
			101: {ID: 101, HallID: 1, RowLabel: "A", SeatNumber: 1, IsActive: true},
			102: {ID: 102, HallID: 1, RowLabel: "A", SeatNumber: 2, IsActive: true},
			103: {ID: 103, HallID: 1, RowLabel: "A", SeatNumber: 3, IsActive: true, Premium: true},
			104: {ID: 104, HallID: 1, RowLabel: "B", SeatNumber: 1, IsActive: false},
			201: {ID: 201, HallID: 2, RowLabel: "A", SeatNumber: 1, IsActive: true},
		},
	}
	return s
}

func (s *memStore) guard(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	locks := append([]model.SeatLock(nil), s.locks...)
	bookings := append([]model.Booking(nil), s.bookings...)
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		s.locks = locks
		s.bookings = bookings
		return err
	}
	return nil
}

func (s *memStore) FindActive(ctx context.Context, showtimeID uint64, now time.Time) ([]model.SeatLock, error) {
	defer s.guard(ctx)()
	var out []model.SeatLock
	for _, l := range s.locks {
		if l.ShowtimeID == showtimeID && l.ExpiresAt.After(now) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) SweepExpired(ctx context.Context, now time.Time) ([]model.SeatLock, error) {
	defer s.guard(ctx)()
	var kept, swept []model.SeatLock
	for _, l := range s.locks {
		if l.ExpiresAt.After(now) {
			kept = append(kept, l)
		} else {
			swept = append(swept, l)
		}
	}
	s.locks = kept
	return swept, nil
}

func (s *memStore) Insert(ctx context.Context, locks []model.SeatLock) error {
	defer s.guard(ctx)()
	for _, nl := range locks {
		for _, l := range s.locks {
			if l.ShowtimeID == nl.ShowtimeID && l.SeatID == nl.SeatID {
				return repository.ErrDuplicate
			}
		}
	}
	for _, nl := range locks {
		s.nextID++
		nl.ID = s.nextID
		s.locks = append(s.locks, nl)
	}
	return nil
}

func (s *memStore) DeleteWhere(ctx context.Context, showtimeID uint64, seatIDs []uint64, sessionID string) ([]uint64, error) {
	defer s.guard(ctx)()
	want := idSet(seatIDs)
	var kept []model.SeatLock
	var released []uint64
	for _, l := range s.locks {
		if l.ShowtimeID == showtimeID && l.SessionID == sessionID && (len(seatIDs) == 0 || want[l.SeatID]) {
			released = append(released, l.SeatID)
			continue
		}
		kept = append(kept, l)
	}
	s.locks = kept
	sort.Slice(released, func(i, j int) bool { return released[i] < released[j] })
	return released, nil
}

func (s *memStore) BookedSeatIDs(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	defer s.guard(ctx)()
	want := idSet(seatIDs)
	var out []uint64
	for _, b := range s.bookings {
		if b.ShowtimeID != showtimeID {
			continue
		}
		for _, bs := range b.Seats {
			if len(seatIDs) == 0 || want[bs.SeatID] {
				out = append(out, bs.SeatID)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *memStore) Create(ctx context.Context, b *model.Booking) error {
	defer s.guard(ctx)()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.bookings {
		if existing.ShowtimeID != b.ShowtimeID {
			continue
		}
		for _, es := range existing.Seats {
			for _, ns := range b.Seats {
				if es.SeatID == ns.SeatID {
					return repository.ErrDuplicate
				}
			}
		}
	}
	s.nextID++
	b.ID = s.nextID
	for i := range b.Seats {
		b.Seats[i].BookingID = b.ID
	}
	cp := *b
	cp.Seats = append([]model.BookingSeat(nil), b.Seats...)
	s.bookings = append(s.bookings, cp)
	return nil
}

func (s *memStore) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	defer s.guard(ctx)()
	st, ok := s.showtimes[id]
	if !ok || !st.IsActive {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (s *memStore) LockShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	return s.GetShowtime(ctx, id)
}

func (s *memStore) GetHall(ctx context.Context, id uint64) (*model.Hall, error) {
	defer s.guard(ctx)()
	h, ok := s.halls[id]
	if !ok || !h.IsActive {
		return nil, repository.ErrNotFound
	}
	return &h, nil
}

func (s *memStore) ActiveSeats(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	defer s.guard(ctx)()
	var out []model.Seat
	for _, seat := range s.seats {
		if seat.HallID == hallID && seat.IsActive {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SeatsByIDs(ctx context.Context, hallID uint64, ids []uint64) ([]model.Seat, error) {
	defer s.guard(ctx)()
	var out []model.Seat
	for _, id := range ids {
		if seat, ok := s.seats[id]; ok && seat.HallID == hallID && seat.IsActive {
			out = append(out, seat)
		}
	}
	return out, nil
}

// liveLocks returns the unexpired locks on a seat.
func (s *memStore) liveLocks(showtimeID, seatID uint64, now time.Time) []model.SeatLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SeatLock
	for _, l := range s.locks {
		if l.ShowtimeID == showtimeID && l.SeatID == seatID && l.ExpiresAt.After(now) {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) lockRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

type statusEvent struct {
	ShowtimeID uint64
	SeatIDs    []uint64
	Status     model.SeatStatus
	Origin     string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []statusEvent
}

func (n *recordingNotifier) SeatStatusChanged(showtimeID uint64, seatIDs []uint64, status model.SeatStatus, origin string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, statusEvent{showtimeID, append([]uint64(nil), seatIDs...), status, origin})
}

func (n *recordingNotifier) all() []statusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]statusEvent(nil), n.events...)
}
