package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
)

// Pinger is satisfied by *sqlx.DB and by a small adapter around the Redis
// client.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

// RedisPinger adapts rdb to Pinger.  It returns nil for a nil client.
func RedisPinger(rdb *redis.Client) Pinger {
	if rdb == nil {
		return nil
	}
	return redisPinger{rdb: rdb}
}

// HealthHandler reports liveness and dependency status.
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler checks each named dependency on /healthz.  A nil pinger
// is reported as "disabled".
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Check handles GET /healthz.  It returns 503 when any configured
// dependency fails to answer within two seconds.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	if len(h.deps) > 0 {
		resp.Checks = make(map[string]string, len(h.deps))
	}
	for name, p := range h.deps {
		if p == nil {
			resp.Checks[name] = "disabled"
			continue
		}
		if err := p.PingContext(ctx); err != nil {
			logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	return c.JSON(status, resp)
}
