package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/middleware"
	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/realtime"
)

// RealtimeHandler upgrades GET /v1/ws to a seat status stream.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Serve blocks for the lifetime of the socket.  The upgrader writes its
// own error response, so failures are only logged.
func (h *RealtimeHandler) Serve(c echo.Context) error {
	sid := middleware.SessionID(c)
	if err := realtime.Serve(h.hub, sid, c.Response(), c.Request()); err != nil {
		logger.Debug("websocket upgrade failed", zap.String("session_id", sid), zap.Error(err))
	}
	return nil
}
