package middleware

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/session"
)

const (
	// SessionHeader carries the session token on API calls.
	SessionHeader = "X-Session-Token"
	// SessionCookie carries the session token for browser navigation.
	SessionCookie = "session_token"
	// SessionQueryParam carries the session token on WebSocket upgrades,
	// where browsers cannot set headers.
	SessionQueryParam = "session_token"

	sessionKey = "session_id"
)

// Session resolves the caller's session and stores its id in the context.
// The token is taken from the X-Session-Token header, then (on WebSocket
// upgrades only) the session_token query parameter, then the session_token
// cookie; the first one that verifies wins.  The header and query forms
// keep each browser tab its own session, the cookie is shared by all tabs.
// When nothing verifies a new session is started and its token is returned
// in the same header and cookie.
func Session(iss *session.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, raw := range sessionTokens(c) {
				if sid, err := iss.Parse(raw); err == nil {
					c.Set(sessionKey, sid)
					return next(c)
				}
			}

			tok, err := iss.Issue()
			if err != nil {
				logger.Error("issue session token", zap.Error(err))
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
			}
			c.Response().Header().Set(SessionHeader, tok.Raw)
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    tok.Raw,
				Path:     "/",
				Expires:  tok.Exp,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(sessionKey, tok.SessionID)
			return next(c)
		}
	}
}

// sessionTokens lists the candidate tokens in precedence order.
func sessionTokens(c echo.Context) []string {
	r := c.Request()
	var raw []string
	if v := r.Header.Get(SessionHeader); v != "" {
		raw = append(raw, v)
	}
	if websocket.IsWebSocketUpgrade(r) {
		if v := c.QueryParam(SessionQueryParam); v != "" {
			raw = append(raw, v)
		}
	}
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		raw = append(raw, ck.Value)
	}
	return raw
}

// SessionID returns the session resolved by Session, or "" when the
// middleware did not run.
func SessionID(c echo.Context) string {
	if v, ok := c.Get(sessionKey).(string); ok {
		return v
	}
	return ""
}

// SetSessionID stores sid as the request's session.  Handlers that accept
// the token in the body (unload beacons) use it after verifying the token
// themselves.
func SetSessionID(c echo.Context, sid string) {
	c.Set(sessionKey, sid)
}
