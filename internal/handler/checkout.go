package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-box-office/internal/middleware"
	"github.com/iliyamo/cinema-box-office/internal/session"
)

// CheckoutHandler shows the booking the session just committed.
type CheckoutHandler struct {
	store CheckoutStore
}

// NewCheckoutHandler accepts a nil store; every lookup then reports that
// there is no checkout.
func NewCheckoutHandler(store CheckoutStore) *CheckoutHandler {
	return &CheckoutHandler{store: store}
}

// Get handles GET /v1/checkout.
func (h *CheckoutHandler) Get(c echo.Context) error {
	if h.store == nil {
		return session.ErrNoCheckout
	}
	summary, err := h.store.Load(c.Request().Context(), middleware.SessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookingResponse(summary))
}
