package app

import (
	"context"
	"log"
	"time"

	"github.com/lsendel/commerce-sub005/internal/clock"
	"github.com/lsendel/commerce-sub005/internal/obs"
)

type SweeperRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ExpireHolds(ctx context.Context, now time.Time) (int, error)
	ExpirePendingBookings(ctx context.Context) (int, error)
	ReopenFullSlots(ctx context.Context, now time.Time) (int, error)
	CountActiveHolds(ctx context.Context, now time.Time) (int, error)
}

// SweeperService reclaims expired holds in the background. Sweeping is
// housekeeping, not correctness: availability math and Convert both treat a
// past-expiry hold as inert on their own, so a delayed or stopped sweeper
// only leaves stale status fields behind.
type SweeperService struct {
	repo     SweeperRepository
	clock    clock.Clock
	logger   *log.Logger
	metrics  *obs.Metrics
	interval time.Duration
}

const defaultSweepInterval = 30 * time.Second

func NewSweeperService(repo SweeperRepository, clk clock.Clock, opts ...SweeperServiceOption) *SweeperService {
	svc := &SweeperService{
		repo:     repo,
		clock:    clk,
		logger:   log.Default(),
		interval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type SweeperServiceOption func(*SweeperService)

// WithSweepInterval overrides the pass interval.
func WithSweepInterval(d time.Duration) SweeperServiceOption {
	return func(s *SweeperService) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweeperLogger overrides the sweeper logger.
func WithSweeperLogger(logger *log.Logger) SweeperServiceOption {
	return func(s *SweeperService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSweeperMetrics attaches sweep counters.
func WithSweeperMetrics(m *obs.Metrics) SweeperServiceOption {
	return func(s *SweeperService) {
		s.metrics = m
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. Pass failures are logged and retried on the next tick.
func (s *SweeperService) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	if _, err := s.SweepOnce(ctx); err != nil {
		s.logger.Printf("sweep failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Printf("sweep failed: %v", err)
			}
		}
	}
}

// SweepOnce runs a single pass: active holds past expiry become expired,
// pending bookings over expired holds follow, and slots stuck on full with
// freed capacity reopen. Returns the number of holds reclaimed.
func (s *SweeperService) SweepOnce(ctx context.Context) (int, error) {
	start := time.Now()
	now := s.clock.Now()

	var reclaimed, reopened int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		if reclaimed, err = s.repo.ExpireHolds(txCtx, now); err != nil {
			return err
		}
		if _, err = s.repo.ExpirePendingBookings(txCtx); err != nil {
			return err
		}
		reopened, err = s.repo.ReopenFullSlots(txCtx, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		if reclaimed > 0 {
			s.metrics.ReclaimedTotal.Add(float64(reclaimed))
		}
		s.metrics.SweepLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
		if active, err := s.repo.CountActiveHolds(ctx, now); err == nil {
			s.metrics.HoldsActive.Set(float64(active))
		}
	}

	if reclaimed > 0 || reopened > 0 {
		s.logger.Printf("sweep reclaimed=%d reopened_slots=%d duration=%s", reclaimed, reopened, time.Since(start))
	}
	return reclaimed, nil
}
