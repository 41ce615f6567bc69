package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lsendel/commerce-sub005/internal/clock"
	"github.com/lsendel/commerce-sub005/internal/domain"
	"github.com/lsendel/commerce-sub005/internal/obs"
)

// LedgerRepository is the storage contract for the reservation ledger. All
// reads that feed a capacity decision happen inside WithTx with the resource
// row locked, so two concurrent acquires can never act on the same stale
// availability.
type LedgerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetResource(ctx context.Context, resourceID string) (domain.Resource, error)
	GetResourceForUpdate(ctx context.Context, resourceID string) (domain.Resource, error)
	FindHoldByIdempotencyKey(ctx context.Context, resourceID, key string) (*domain.Hold, error)
	SumActiveHolds(ctx context.Context, resourceID string, now time.Time) (int, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error
	AddConfirmed(ctx context.Context, resourceID string, delta int) error
	GetSlot(ctx context.Context, resourceID string) (domain.Slot, error)
	UpdateSlotStatus(ctx context.Context, resourceID string, status domain.SlotStatus) error
}

// LedgerService owns every hold mutation: acquire, release, convert. Nothing
// else in the system writes holds.
type LedgerService struct {
	repo       LedgerRepository
	clock      clock.Clock
	logger     *log.Logger
	metrics    *obs.Metrics
	defaultTTL time.Duration
}

const defaultHoldTTL = 15 * time.Minute

func NewLedgerService(repo LedgerRepository, clk clock.Clock, opts ...LedgerServiceOption) *LedgerService {
	svc := &LedgerService{
		repo:       repo,
		clock:      clk,
		logger:     log.Default(),
		defaultTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type LedgerServiceOption func(*LedgerService)

// WithDefaultTTL overrides the TTL used when the caller does not supply one.
func WithDefaultTTL(d time.Duration) LedgerServiceOption {
	return func(s *LedgerService) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger *log.Logger) LedgerServiceOption {
	return func(s *LedgerService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches operation counters.
func WithMetrics(m *obs.Metrics) LedgerServiceOption {
	return func(s *LedgerService) {
		s.metrics = m
	}
}

type AcquireInput struct {
	ResourceID     string
	Quantity       int
	TTL            time.Duration
	OwnerKind      domain.OwnerKind
	OwnerRef       string
	IdempotencyKey string
}

// Acquire admits a new hold if the resource has capacity for it. The
// availability check and the hold insert happen in one transaction with the
// resource row locked; on shortfall nothing is created.
func (s *LedgerService) Acquire(ctx context.Context, in AcquireInput) (domain.Hold, error) {
	hold, err := s.acquire(ctx, in)
	s.countAcquire(err)
	return hold, err
}

func (s *LedgerService) acquire(ctx context.Context, in AcquireInput) (domain.Hold, error) {
	if in.Quantity <= 0 {
		return domain.Hold{}, domain.ErrInvalidQuantity
	}
	if in.TTL < 0 {
		return domain.Hold{}, domain.ErrInvalidTTL
	}
	if in.IdempotencyKey == "" {
		return domain.Hold{}, domain.ErrIdempotencyKeyRequired
	}
	if in.OwnerKind != domain.OwnerKindCartItem && in.OwnerKind != domain.OwnerKindBooking {
		return domain.Hold{}, domain.ErrInvalidOwnerKind
	}
	if in.OwnerRef == "" {
		return domain.Hold{}, domain.ErrOwnerRefRequired
	}

	ttl := in.TTL
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	now := s.clock.Now()
	var result domain.Hold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if existing, err := s.repo.FindHoldByIdempotencyKey(txCtx, in.ResourceID, in.IdempotencyKey); err != nil {
			return err
		} else if existing != nil {
			if existing.Quantity != in.Quantity {
				return domain.ErrIdempotencyConflict
			}
			result = *existing
			return nil
		}

		resource, err := s.repo.GetResourceForUpdate(txCtx, in.ResourceID)
		if err != nil {
			return err
		}

		available, err := s.availabilityLocked(txCtx, resource, now)
		if err != nil {
			return err
		}
		if in.Quantity > available {
			return domain.ErrCapacityExceeded
		}

		hold := domain.Hold{
			ID:             uuid.NewString(),
			ResourceID:     in.ResourceID,
			Quantity:       in.Quantity,
			Status:         domain.HoldStatusActive,
			OwnerKind:      in.OwnerKind,
			OwnerRef:       in.OwnerRef,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
			ExpiresAt:      now.Add(ttl),
		}

		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			// Re-read on conflict to keep idempotent retries consistent under concurrency.
			if err == domain.ErrIdempotencyConflict {
				existing, err := s.repo.FindHoldByIdempotencyKey(txCtx, in.ResourceID, in.IdempotencyKey)
				if err != nil {
					return err
				}
				if existing != nil {
					if existing.Quantity != in.Quantity {
						return domain.ErrIdempotencyConflict
					}
					result = *existing
					return nil
				}
			}
			return err
		}

		if err := s.reconcileSlotStatus(txCtx, resource, available-in.Quantity); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return result, nil
}

// Release returns a hold's capacity early. Valid only from active; a second
// release reports ErrHoldAlreadyTerminal and frees nothing. Releasing an
// active hold whose expiry has already passed is allowed: the capacity was
// already inert, the transition only settles bookkeeping.
func (s *LedgerService) Release(ctx context.Context, holdID string) error {
	err := s.release(ctx, holdID)
	s.countRelease(err)
	return err
}

func (s *LedgerService) release(ctx context.Context, holdID string) error {
	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.Terminal() {
			return domain.ErrHoldAlreadyTerminal
		}
		if err := s.repo.UpdateHoldStatus(txCtx, holdID, domain.HoldStatusReleased); err != nil {
			return err
		}

		resource, err := s.repo.GetResourceForUpdate(txCtx, hold.ResourceID)
		if err != nil {
			return err
		}
		available, err := s.availabilityLocked(txCtx, resource, now)
		if err != nil {
			return err
		}
		return s.reconcileSlotStatus(txCtx, resource, available)
	})
}

// Convert turns a hold into a permanent commitment, incrementing the
// resource's confirmed count. The expiry check happens here, inside the
// transaction: a hold past its expiry can never convert, whether or not the
// sweeper has run.
func (s *LedgerService) Convert(ctx context.Context, holdID string) error {
	err := s.convert(ctx, holdID)
	s.countConvert(err)
	return err
}

func (s *LedgerService) convert(ctx context.Context, holdID string) error {
	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.Terminal() {
			if hold.Status == domain.HoldStatusExpired {
				return domain.ErrHoldExpired
			}
			return domain.ErrHoldAlreadyTerminal
		}
		if hold.ExpiredAt(now) {
			return domain.ErrHoldExpired
		}

		if err := s.repo.UpdateHoldStatus(txCtx, holdID, domain.HoldStatusConverted); err != nil {
			return err
		}
		// Net availability is unchanged: the hold's claim becomes confirmed.
		return s.repo.AddConfirmed(txCtx, hold.ResourceID, hold.Quantity)
	})
}

// Availability is the capacity gate: capacity minus confirmed minus the sum
// of active, unexpired hold quantities. Always derived, never cached.
func (s *LedgerService) Availability(ctx context.Context, resourceID string) (int, error) {
	now := s.clock.Now()
	var available int
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		resource, err := s.repo.GetResource(txCtx, resourceID)
		if err != nil {
			return err
		}
		available, err = s.availabilityLocked(txCtx, resource, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	return available, nil
}

// availabilityLocked computes derived availability for a resource already
// read in the current transaction. A negative result means reserved plus
// confirmed demand exceeds capacity somewhere, which acquire exists to make
// impossible; it is reported, never clamped.
func (s *LedgerService) availabilityLocked(ctx context.Context, resource domain.Resource, now time.Time) (int, error) {
	activeQty, err := s.repo.SumActiveHolds(ctx, resource.ID, now)
	if err != nil {
		return 0, err
	}
	available := resource.Capacity - resource.Confirmed - activeQty
	if available < 0 {
		s.logger.Printf("ERROR: negative availability resource=%s capacity=%d confirmed=%d active=%d",
			resource.ID, resource.Capacity, resource.Confirmed, activeQty)
		return 0, domain.ErrInvariantViolation
	}
	return available, nil
}

// reconcileSlotStatus keeps a slot's full/open status in agreement with
// derived availability. Operator overrides (closed, cancelled) are never
// touched.
func (s *LedgerService) reconcileSlotStatus(ctx context.Context, resource domain.Resource, available int) error {
	if resource.Kind != domain.ResourceKindSlot {
		return nil
	}
	slot, err := s.repo.GetSlot(ctx, resource.ID)
	if err != nil {
		if err == domain.ErrSlotNotFound {
			return nil
		}
		return err
	}
	switch {
	case slot.Status == domain.SlotStatusOpen && available == 0:
		return s.repo.UpdateSlotStatus(ctx, resource.ID, domain.SlotStatusFull)
	case slot.Status == domain.SlotStatusFull && available > 0:
		return s.repo.UpdateSlotStatus(ctx, resource.ID, domain.SlotStatusOpen)
	}
	return nil
}

func (s *LedgerService) countAcquire(err error) {
	if s.metrics == nil {
		return
	}
	switch err {
	case nil:
		s.metrics.AcquireTotal.WithLabelValues(obs.ResultSuccess).Inc()
	case domain.ErrCapacityExceeded:
		s.metrics.AcquireTotal.WithLabelValues(obs.ResultCapacityExceeded).Inc()
	default:
		s.metrics.AcquireTotal.WithLabelValues(obs.ResultError).Inc()
	}
}

func (s *LedgerService) countRelease(err error) {
	if s.metrics == nil {
		return
	}
	switch err {
	case nil:
		s.metrics.ReleaseTotal.WithLabelValues(obs.ResultSuccess).Inc()
	case domain.ErrHoldAlreadyTerminal:
		s.metrics.ReleaseTotal.WithLabelValues(obs.ResultTerminal).Inc()
	default:
		s.metrics.ReleaseTotal.WithLabelValues(obs.ResultError).Inc()
	}
}

func (s *LedgerService) countConvert(err error) {
	if s.metrics == nil {
		return
	}
	switch err {
	case nil:
		s.metrics.ConvertTotal.WithLabelValues(obs.ResultSuccess).Inc()
	case domain.ErrHoldExpired:
		s.metrics.ConvertTotal.WithLabelValues(obs.ResultExpired).Inc()
	case domain.ErrHoldAlreadyTerminal:
		s.metrics.ConvertTotal.WithLabelValues(obs.ResultTerminal).Inc()
	default:
		s.metrics.ConvertTotal.WithLabelValues(obs.ResultError).Inc()
	}
}
