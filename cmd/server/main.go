package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/config"
	"github.com/iliyamo/cinema-box-office/internal/database"
	"github.com/iliyamo/cinema-box-office/internal/handler"
	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/pkg/metrics"
	"github.com/iliyamo/cinema-box-office/internal/queue"
	"github.com/iliyamo/cinema-box-office/internal/realtime"
	"github.com/iliyamo/cinema-box-office/internal/repository"
	"github.com/iliyamo/cinema-box-office/internal/router"
	"github.com/iliyamo/cinema-box-office/internal/service"
	"github.com/iliyamo/cinema-box-office/internal/session"
	"github.com/iliyamo/cinema-box-office/internal/worker"
)

func main() {
	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			logger.Fatal("migrate database", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient()
	var checkout handler.CheckoutStore
	if rdb != nil {
		defer rdb.Close()
		checkout = session.NewCheckoutStore(rdb, cfg.CheckoutTTL)
	} else {
		logger.Warn("redis unavailable: rate limiting, response cache and checkout store disabled")
	}

	m := metrics.New()
	hub := realtime.NewHub(realtime.WithMetrics(m))
	publisher := queue.NewPublisher(cfg.RabbitURL)
	defer publisher.Close()

	tx := repository.NewTxManager(db)
	locks := repository.NewSeatLockRepo(db)
	bookings := repository.NewBookingRepo(db)
	catalog := repository.NewCatalogRepo(db)

	lockManager := service.NewLockManager(tx, locks, bookings, catalog,
		service.WithLockDuration(cfg.LockDuration),
		service.WithLockNotifier(hub),
		service.WithLockMetrics(m),
	)
	committer := service.NewBookingCommitter(tx, locks, bookings, catalog,
		service.WithCommitNotifier(hub),
		service.WithPublisher(publisher),
		service.WithCommitMetrics(m),
	)
	projector := service.NewSeatMapProjector(catalog, locks, bookings)
	issuer := session.NewIssuer(cfg.SessionSecret, cfg.SessionTTL)

	e := router.New(router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"mysql": db,
			"redis": handler.RedisPinger(rdb),
		}),
		Showtimes: handler.NewShowtimeHandler(catalog, service.SystemClock{}),
		Seats:     handler.NewSeatSelectionHandler(lockManager, committer, projector, catalog, checkout, issuer, service.SystemClock{}),
		Checkout:  handler.NewCheckoutHandler(checkout),
		Realtime:  handler.NewRealtimeHandler(hub),
	}, router.Options{
		Sessions:        issuer,
		Metrics:         m,
		MetricsUser:     cfg.MetricsUser,
		MetricsPassword: cfg.MetricsPassword,
		RateLimit:       config.LoadRateLimitConfig(),
		Cache:           config.LoadCacheConfig(),
		Redis:           rdb,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := worker.NewLockSweeper(lockManager, cfg.LockSweepInterval, nil)
	go sweeper.Start(ctx)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	sweeper.Stop()
	logger.Info("server stopped")
}
