// Package queue carries booking events over RabbitMQ: a publisher used by
// the API after a commit and a consumer run by the worker process.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

// BookingConfirmedQueue is the durable queue booking events are routed to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking is committed.  It is
// self-contained so consumers never query the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64    `json:"booking_id"`
	SessionID   string    `json:"session_id"`
	ShowtimeID  uint64    `json:"showtime_id"`
	MovieTitle  string    `json:"movie_title"`
	HallName    string    `json:"hall_name"`
	StartsAt    time.Time `json:"starts_at"`
	SeatLabels  []string  `json:"seats"`
	Tickets     int       `json:"tickets"`
	TotalCents  int64     `json:"total_cents"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// NewBookingConfirmedEvent builds the event for a committed booking.
func NewBookingConfirmedEvent(s *model.BookingSummary) BookingConfirmedEvent {
	tickets := 0
	for _, l := range s.Lines {
		tickets += l.Count
	}
	return BookingConfirmedEvent{
		BookingID:   s.BookingID,
		SessionID:   s.SessionID,
		ShowtimeID:  s.ShowtimeID,
		MovieTitle:  s.MovieTitle,
		HallName:    s.HallName,
		StartsAt:    s.StartsAt,
		SeatLabels:  append([]string(nil), s.Seats...),
		Tickets:     tickets,
		TotalCents:  s.TotalCents,
		ConfirmedAt: s.ConfirmedAt,
	}
}
