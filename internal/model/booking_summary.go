package model

import "time"

// TicketCategory is a priced ticket type.
type TicketCategory string

const (
    TicketChild  TicketCategory = "child"
    TicketAdult  TicketCategory = "adult"
    TicketSenior TicketCategory = "senior"
)

// PriceLine is one ticket category in a price breakdown.  Amounts are in
// cents.
type PriceLine struct {
    Category    TicketCategory `json:"category"`
    Count       int            `json:"count"`
    UnitCents   int64          `json:"unit_cents"`
    AmountCents int64          `json:"amount_cents"`
}

// BookingSummary is what the customer sees at checkout after a successful
// commit.  It is stored per session and also published to the broker.
type BookingSummary struct {
    BookingID   uint64      `json:"booking_id"`
    SessionID   string      `json:"session_id"`
    ShowtimeID  uint64      `json:"showtime_id"`
    MovieTitle  string      `json:"movie_title"`
    HallName    string      `json:"hall_name"`
    StartsAt    time.Time   `json:"starts_at"`
    SeatIDs     []uint64    `json:"seat_ids"`
    Seats       []string    `json:"seats"`
    Lines       []PriceLine `json:"lines"`
    TotalCents  int64       `json:"total_cents"`
    ConfirmedAt time.Time   `json:"confirmed_at"`
}
