// Package router assembles the echo instance: global middleware, the /v1
// API and the operational endpoints.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-box-office/internal/config"
	"github.com/iliyamo/cinema-box-office/internal/handler"
	"github.com/iliyamo/cinema-box-office/internal/middleware"
	"github.com/iliyamo/cinema-box-office/internal/pkg/metrics"
	"github.com/iliyamo/cinema-box-office/internal/session"
)

// Handlers are the HTTP handlers mounted by New.
type Handlers struct {
	Health    *handler.HealthHandler
	Showtimes *handler.ShowtimeHandler
	Seats     *handler.SeatSelectionHandler
	Checkout  *handler.CheckoutHandler
	Realtime  *handler.RealtimeHandler
}

// Options carries the cross-cutting dependencies.  Redis may be nil, which
// disables rate limiting and the response cache.
type Options struct {
	Sessions        *session.Issuer
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	MetricsUser     string
	MetricsPassword string
	RateLimit       config.RateLimitConfig
	Cache           config.CacheConfig
	Redis           *redis.Client
}

// New returns a configured echo instance with every route registered.
func New(h Handlers, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	m := o.Metrics
	if m == nil {
		m = metrics.NewNop()
	}
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(middleware.Prometheus(m))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, middleware.SessionHeader},
		ExposeHeaders: []string{middleware.SessionHeader, "Retry-After"},
	}))

	registerOps(e, h, o)
	registerAPI(e, h, o)
	return e
}

func registerOps(e *echo.Echo, h Handlers, o Options) {
	e.GET("/healthz", h.Health.Check)

	gatherer := o.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics",
		echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
		middleware.MetricsBasicAuth(o.MetricsUser, o.MetricsPassword),
	)
}

// registerAPI mounts the session-scoped box office routes.  Lock and commit
// are rate limited per session; the showtime listing and details are served
// from the response cache.
func registerAPI(e *echo.Echo, h Handlers, o Options) {
	v1 := e.Group("/v1", middleware.Session(o.Sessions))
	limited := middleware.NewTokenBucket(o.RateLimit, o.Redis)
	cached := middleware.NewRedisCache(o.Cache, o.Redis)

	v1.GET("/showtimes", h.Showtimes.List, cached)
	v1.GET("/showtimes/:id", h.Showtimes.Get, cached)
	v1.GET("/showtimes/:id/seats", h.Seats.SeatMap)
	v1.POST("/showtimes/:id/locks", h.Seats.Lock, limited)
	v1.DELETE("/showtimes/:id/locks", h.Seats.Release)
	v1.POST("/showtimes/:id/locks/beacon", h.Seats.Beacon)
	v1.POST("/showtimes/:id/price", h.Seats.Price)
	v1.POST("/showtimes/:id/commit", h.Seats.Commit, limited)
	v1.GET("/checkout", h.Checkout.Get)
	v1.GET("/ws", h.Realtime.Serve)
}
