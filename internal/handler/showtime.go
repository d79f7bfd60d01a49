package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-box-office/internal/model"
	"github.com/iliyamo/cinema-box-office/internal/repository"
	"github.com/iliyamo/cinema-box-office/internal/service"
)

// ShowtimeResponse is the public view of a showtime.
type ShowtimeResponse struct {
	ID               uint64                         `json:"id"`
	MovieID          uint64                         `json:"movie_id"`
	MovieTitle       string                         `json:"movie_title"`
	HallID           uint64                         `json:"hall_id"`
	HallName         string                         `json:"hall_name"`
	StartsAt         time.Time                      `json:"starts_at"`
	TicketPriceCents int64                          `json:"ticket_price_cents"`
	PriceTiers       map[model.TicketCategory]int64 `json:"price_tiers"`
}

func toShowtimeResponse(st *model.Showtime) ShowtimeResponse {
	return ShowtimeResponse{
		ID:               st.ID,
		MovieID:          st.MovieID,
		MovieTitle:       st.MovieTitle,
		HallID:           st.HallID,
		HallName:         st.HallName,
		StartsAt:         st.StartsAt,
		TicketPriceCents: st.TicketPriceCents,
		PriceTiers:       service.PriceTiers(st.TicketPriceCents),
	}
}

// ShowtimeHandler serves the read-only showtime listing and details.
type ShowtimeHandler struct {
	showtimes ShowtimeCatalog
	clock     service.Clock
}

func NewShowtimeHandler(showtimes ShowtimeCatalog, clock service.Clock) *ShowtimeHandler {
	if showtimes == nil {
		panic("nil showtime catalog passed to NewShowtimeHandler")
	}
	if clock == nil {
		clock = service.SystemClock{}
	}
	return &ShowtimeHandler{showtimes: showtimes, clock: clock}
}

type listShowtimesRequest struct {
	Title    string `query:"title" validate:"max=100"`
	Hall     string `query:"hall" validate:"max=100"`
	Page     int    `query:"page" validate:"min=0"`
	PageSize int    `query:"page_size" validate:"min=0,max=100"`
}

// List handles GET /v1/showtimes?title=&hall=&page=&page_size=.  Only
// upcoming showtimes are listed, earliest first.
func (h *ShowtimeHandler) List(c echo.Context) error {
	var req listShowtimesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	rows, total, err := h.showtimes.SearchShowtimes(c.Request().Context(), repository.ShowtimeQuery{
		Title:    req.Title,
		Hall:     req.Hall,
		From:     h.clock.Now(),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return err
	}
	items := make([]ShowtimeResponse, len(rows))
	for i := range rows {
		items[i] = toShowtimeResponse(&rows[i])
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"items":     items,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

// Get handles GET /v1/showtimes/:id.  Inactive showtimes are reported as
// not found.
func (h *ShowtimeHandler) Get(c echo.Context) error {
	id, err := showtimeID(c)
	if err != nil {
		return err
	}
	st, err := h.showtimes.GetShowtime(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "showtime": toShowtimeResponse(st)})
}

// showtimeID parses the :id path parameter.
func showtimeID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid showtime id")
	}
	return id, nil
}
