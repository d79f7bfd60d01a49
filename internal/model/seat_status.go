package model

// SeatStatus is the state broadcast to watchers when seats change hands.
type SeatStatus string

const (
    SeatLocked    SeatStatus = "locked"
    SeatAvailable SeatStatus = "available"
    SeatBooked    SeatStatus = "booked"
)

// SeatViewState is the per-viewer classification of a seat on the seat map.
type SeatViewState string

const (
    ViewOccupied      SeatViewState = "occupied"
    ViewLockedByOther SeatViewState = "lockedByOther"
    ViewSelectedByMe  SeatViewState = "selectedByMe"
    ViewFree          SeatViewState = "free"
)
