package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

// SeatView is one seat as a given session sees it.
type SeatView struct {
	SeatID     uint64              `json:"seat_id"`
	Label      string              `json:"label"`
	Row        string              `json:"row"`
	Number     uint32              `json:"number"`
	Premium    bool                `json:"premium"`
	Wheelchair bool                `json:"wheelchair"`
	State      model.SeatViewState `json:"state"`
	// ExpiresAt is set for seats the session itself holds.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// SeatMap is the projected seat plan of a showtime.
type SeatMap struct {
	Showtime *model.Showtime
	Hall     *model.Hall
	Seats    []SeatView
}

// SeatMapProjector classifies every active seat of a showtime for one
// session.  It only reads; expired locks are ignored rather than deleted.
type SeatMapProjector struct {
	catalog  CatalogStore
	locks    LockStore
	bookings BookingStore
}

func NewSeatMapProjector(catalog CatalogStore, locks LockStore, bookings BookingStore) *SeatMapProjector {
	return &SeatMapProjector{catalog: catalog, locks: locks, bookings: bookings}
}

// Project returns exactly one view per active seat.  Precedence is
// occupied, then lockedByOther or selectedByMe, then free.
func (p *SeatMapProjector) Project(ctx context.Context, showtimeID uint64, sessionID string, now time.Time) (*SeatMap, error) {
	st, err := p.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, showtimeError(err)
	}
	hall, err := p.catalog.GetHall(ctx, st.HallID)
	if err != nil {
		return nil, fmt.Errorf("get hall: %w", err)
	}
	seats, err := p.catalog.ActiveSeats(ctx, st.HallID)
	if err != nil {
		return nil, err
	}
	booked, err := p.bookings.BookedSeatIDs(ctx, showtimeID, nil)
	if err != nil {
		return nil, err
	}
	active, err := p.locks.FindActive(ctx, showtimeID, now)
	if err != nil {
		return nil, err
	}

	occupied := idSet(booked)
	held := make(map[uint64]model.SeatLock, len(active))
	for _, l := range active {
		if l.Live(now) {
			held[l.SeatID] = l
		}
	}

	views := make([]SeatView, len(seats))
	for i, s := range seats {
		v := SeatView{
			SeatID:     s.ID,
			Label:      s.Label(),
			Row:        s.RowLabel,
			Number:     s.SeatNumber,
			Premium:    s.Premium,
			Wheelchair: s.Wheelchair,
			State:      model.ViewFree,
		}
		if occupied[s.ID] {
			v.State = model.ViewOccupied
		} else if l, ok := held[s.ID]; ok {
			if l.SessionID == sessionID {
				v.State = model.ViewSelectedByMe
				exp := l.ExpiresAt
				v.ExpiresAt = &exp
			} else {
				v.State = model.ViewLockedByOther
			}
		}
		views[i] = v
	}
	return &SeatMap{Showtime: st, Hall: hall, Seats: views}, nil
}
