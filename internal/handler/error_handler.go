package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/repository"
	"github.com/iliyamo/cinema-box-office/internal/service"
	"github.com/iliyamo/cinema-box-office/internal/session"
)

// ErrorResponse is the body of every failed request.  Seats lists the
// labels of the seats behind a seat conflict.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Seats   []string `json:"seats,omitempty"`
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrNoSeatsSelected, http.StatusBadRequest, "no_seats_selected"},
	{service.ErrTicketCountMismatch, http.StatusBadRequest, "ticket_count_mismatch"},
	{service.ErrInvalidSeat, http.StatusBadRequest, "invalid_seat"},
	{service.ErrShowtimeNotFound, http.StatusNotFound, "showtime_not_found"},
	{repository.ErrNotFound, http.StatusNotFound, "showtime_not_found"},
	{session.ErrNoCheckout, http.StatusNotFound, "no_checkout"},
	{service.ErrSeatAlreadyBooked, http.StatusConflict, "seat_already_booked"},
	{service.ErrSeatHeldByOther, http.StatusConflict, "seat_held_by_other"},
	{service.ErrSeatNotHeld, http.StatusConflict, "seat_not_held"},
}

// classify maps err to a status, a stable error code and a client message.
func classify(err error) (int, string, string) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.status, ec.code, err.Error()
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, statusCode(he.Code), msg
	}
	return http.StatusInternalServerError, "internal_error", "internal server error"
}

func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}

// HTTPErrorHandler renders errors returned by handlers and middleware as
// ErrorResponse.  5xx errors are logged with the underlying cause.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("server error",
			zap.Int("status", status),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, ErrorResponse{
			Success: false,
			Error:   code,
			Message: msg,
			Seats:   service.ConflictSeats(err),
		})
	}
	if werr != nil {
		logger.Error("write error response", zap.Error(werr))
	}
}
