package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/middleware"
	"github.com/iliyamo/cinema-box-office/internal/model"
	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/service"
	"github.com/iliyamo/cinema-box-office/internal/session"
)

const (
	// CheckoutPath is where a successful commit redirects.
	CheckoutPath = "/v1/checkout"

	beaconTimeout  = 5 * time.Second
	maxBeaconBytes = 16 << 10
)

// SeatSelectionHandler serves the seat picker: the seat map, locking and
// releasing seats, price quotes and the booking commit.  Every method acts
// on behalf of the session resolved by middleware.Session.
type SeatSelectionHandler struct {
	locks     SeatLocker
	committer Committer
	seatMap   SeatMapper
	showtimes ShowtimeReader
	checkout  CheckoutStore
	sessions  *session.Issuer
	clock     service.Clock
}

// NewSeatSelectionHandler wires the handler.  checkout may be nil, in
// which case commit returns the booking summary inline instead of
// redirecting.
func NewSeatSelectionHandler(locks SeatLocker, committer Committer, seatMap SeatMapper, showtimes ShowtimeReader, checkout CheckoutStore, sessions *session.Issuer, clock service.Clock) *SeatSelectionHandler {
	if locks == nil || committer == nil || seatMap == nil || showtimes == nil || sessions == nil {
		panic("nil dependency passed to NewSeatSelectionHandler")
	}
	if clock == nil {
		clock = service.SystemClock{}
	}
	return &SeatSelectionHandler{
		locks:     locks,
		committer: committer,
		seatMap:   seatMap,
		showtimes: showtimes,
		checkout:  checkout,
		sessions:  sessions,
		clock:     clock,
	}
}

// HallResponse is the seat grid of the showtime's hall.
type HallResponse struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	SeatRows uint32 `json:"seat_rows"`
	SeatCols uint32 `json:"seat_cols"`
}

func toHallResponse(h *model.Hall) *HallResponse {
	if h == nil {
		return nil
	}
	return &HallResponse{ID: h.ID, Name: h.Name, SeatRows: h.SeatRows, SeatCols: h.SeatCols}
}

// SeatMapResponse is the body of GET /v1/showtimes/:id/seats.
type SeatMapResponse struct {
	Success             bool               `json:"success"`
	Showtime            ShowtimeResponse   `json:"showtime"`
	Hall                *HallResponse      `json:"hall,omitempty"`
	Seats               []service.SeatView `json:"seats"`
	SessionID           string             `json:"session_id"`
	LockDurationSeconds int                `json:"lock_duration_seconds"`
}

// SeatMap handles GET /v1/showtimes/:id/seats.  Seat states are relative to
// the caller: seats it holds are selectedByMe, seats held by any other
// session are lockedByOther.
func (h *SeatSelectionHandler) SeatMap(c echo.Context) error {
	id, err := showtimeID(c)
	if err != nil {
		return err
	}
	sid := middleware.SessionID(c)
	sm, err := h.seatMap.Project(c.Request().Context(), id, sid, h.clock.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SeatMapResponse{
		Success:             true,
		Showtime:            toShowtimeResponse(sm.Showtime),
		Hall:                toHallResponse(sm.Hall),
		Seats:               sm.Seats,
		SessionID:           sid,
		LockDurationSeconds: int(h.locks.LockDuration() / time.Second),
	})
}

type seatIDsRequest struct {
	SeatIDs []uint64 `json:"seat_ids" validate:"max=50,dive,gt=0"`
}

// Lock handles POST /v1/showtimes/:id/locks.  Locking seats the session
// already holds renews them.  A conflict fails the whole request and lists
// the offending seats.
func (h *SeatSelectionHandler) Lock(c echo.Context) error {
	id, err := showtimeID(c)
	if err != nil {
		return err
	}
	var req seatIDsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	expiresAt, err := h.locks.AcquireLocks(c.Request().Context(), id, req.SeatIDs, middleware.SessionID(c), h.clock.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "expires_at": expiresAt})
}

// Release handles DELETE /v1/showtimes/:id/locks.  Only the caller's own
// locks are removed; an empty seat_ids releases all of them for the
// showtime.
func (h *SeatSelectionHandler) Release(c echo.Context) error {
	id, err := showtimeID(c)
	if err != nil {
		return err
	}
	var req seatIDsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	released, err := h.locks.ReleaseLocks(c.Request().Context(), id, req.SeatIDs, middleware.SessionID(c))
	if err != nil {
		return err
	}
	if released == nil {
		released = []uint64{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "released": released})
}

type beaconRequest struct {
	SessionToken string   `json:"session_token"`
	SeatIDs      []uint64 `json:"seat_ids"`
}

// Beacon handles POST /v1/showtimes/:id/locks/beacon, sent by the browser
// while the page unloads.  Beacons cannot set headers and usually arrive as
// text/plain, so the body is decoded directly and the token may travel in
// it.  The response is always 204; the sweeper frees whatever a lost
// beacon leaves behind.
func (h *SeatSelectionHandler) Beacon(c echo.Context) error {
	id, err := showtimeID(c)
	if err != nil {
		return c.NoContent(http.StatusNoContent)
	}

	var req beaconRequest
	if err := json.NewDecoder(io.LimitReader(c.Request().Body, maxBeaconBytes)).Decode(&req); err != nil {
		logger.Debug("discarding malformed beacon", zap.Uint64("showtime_id", id), zap.Error(err))
		return c.NoContent(http.StatusNoContent)
	}

	if req.SessionToken != "" {
		if parsed, err := h.sessions.Parse(req.SessionToken); err == nil {
			middleware.SetSessionID(c, parsed)
		}
	}
	sid := middleware.SessionID(c)
	if sid == "" {
		return c.NoContent(http.StatusNoContent)
	}

	// The client is gone; finish the release even though the request is.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), beaconTimeout)
	defer cancel()
	if _, err := h.locks.ReleaseLocks(ctx, id, req.SeatIDs, sid); err != nil {
		logger.Warn("beacon release failed",
			zap.Uint64("showtime_id", id),
			zap.String("session_id", sid),
			zap.Error(err),
		)
	}
	return c.NoContent(http.StatusNoContent)
}

type priceRequest struct {
	Child             int `json:"child_count" validate:"min=0"`
	Adult             int `json:"adult_count" validate:"min=0"`
	Senior            int `json:"senior_count" validate:"min=0"`
	SelectedSeatCount int `json:"selected_seat_count" validate:"min=0"`
}

// Price handles POST /v1/showtimes/:id/price.  The quote is returned even
// when the ticket total does not match the selection; is_valid says whether
// it could be committed.
func (h *SeatSelectionHandler) Price(c echo.Context) error {
	id, err := showtimeID(c)
	if err != nil {
		return err
	}
	var req priceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	st, err := h.showtimes.GetShowtime(c.Request().Context(), id)
	if err != nil {
		return err
	}
	q := service.Price(st.TicketPriceCents, service.TicketCounts{Child: req.Child, Adult: req.Adult, Senior: req.Senior}, req.SelectedSeatCount)
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"is_valid":     q.IsValid,
		"subtotal":     q.SubtotalCents,
		"per_category": q.Lines,
	})
}

type commitRequest struct {
	SeatIDs []uint64 `json:"seat_ids" validate:"max=50,dive,gt=0"`
	Child   int      `json:"child_count" validate:"min=0"`
	Adult   int      `json:"adult_count" validate:"min=0"`
	Senior  int      `json:"senior_count" validate:"min=0"`
}

// Commit handles POST /v1/showtimes/:id/commit.  On success the summary is
// stored for the session and the client is redirected to the checkout page
// with 303.  Without a checkout store the summary is returned with 201.
func (h *SeatSelectionHandler) Commit(c echo.Context) error {
	id, err := showtimeID(c)
	if err != nil {
		return err
	}
	var req commitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	sid := middleware.SessionID(c)
	summary, err := h.committer.Commit(ctx, service.CommitInput{
		ShowtimeID: id,
		SessionID:  sid,
		SeatIDs:    req.SeatIDs,
		Tickets:    service.TicketCounts{Child: req.Child, Adult: req.Adult, Senior: req.Senior},
	}, h.clock.Now())
	if err != nil {
		return err
	}

	if h.checkout != nil {
		// The booking is committed; a store failure must not turn it into an error.
		err := h.checkout.Save(context.WithoutCancel(ctx), sid, summary)
		if err == nil {
			return c.Redirect(http.StatusSeeOther, CheckoutPath)
		}
		logger.Warn("checkout store unavailable, returning summary inline",
			zap.Uint64("booking_id", summary.BookingID),
			zap.Error(err),
		)
	}
	return c.JSON(http.StatusCreated, bookingResponse(summary))
}

func bookingResponse(s *model.BookingSummary) echo.Map {
	return echo.Map{"success": true, "booking": s}
}
