// Package worker runs background jobs next to the HTTP server.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/service"
)

// LockExpirer deletes expired seat locks and announces the freed seats.
type LockExpirer interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// LockSweeper frees expired seat locks on a fixed interval so viewers see
// abandoned seats become available even when nobody is locking.
type LockSweeper struct {
	locks    LockExpirer
	interval time.Duration
	clock    service.Clock
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewLockSweeper(locks LockExpirer, interval time.Duration, clock service.Clock) *LockSweeper {
	if clock == nil {
		clock = service.SystemClock{}
	}
	return &LockSweeper{
		locks:    locks,
		interval: interval,
		clock:    clock,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (s *LockSweeper) Start(ctx context.Context) {
	logger.Info("lock sweeper started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("lock sweeper stopped", zap.String("reason", "context"))
			return
		case <-s.stopCh:
			logger.Info("lock sweeper stopped", zap.String("reason", "stop"))
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop ends Start and waits for it to return.
func (s *LockSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *LockSweeper) sweep(ctx context.Context) {
	n, err := s.locks.SweepExpired(ctx, s.clock.Now())
	if err != nil {
		logger.Error("lock sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("expired seat locks released", zap.Int("count", n))
	} else {
		logger.Debug("no expired seat locks")
	}
}
