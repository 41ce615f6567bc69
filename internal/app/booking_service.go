package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lsendel/commerce-sub005/internal/clock"
	"github.com/lsendel/commerce-sub005/internal/domain"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetSlot(ctx context.Context, slotID string) (domain.Slot, error)
	GetSlotResource(ctx context.Context, slotID string) (domain.Resource, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBooking(ctx context.Context, bookingID string) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error
	SumReservedBookings(ctx context.Context, slotID string, now time.Time) (int, error)
}

// BookingService runs the booking-request lifecycle (pending, then exactly
// one of confirmed, cancelled or expired) on top of the reservation ledger.
// Every capacity decision is the ledger's; this service only keeps the
// booking record in step with its hold, inside the same transaction.
type BookingService struct {
	repo   BookingRepository
	ledger *LedgerService
	clock  clock.Clock
}

func NewBookingService(repo BookingRepository, ledger *LedgerService, clk clock.Clock) *BookingService {
	return &BookingService{
		repo:   repo,
		ledger: ledger,
		clock:  clk,
	}
}

type RequestBookingInput struct {
	SlotID         string
	Quantity       int
	CustomerRef    string
	TTL            time.Duration
	IdempotencyKey string
}

// Request creates a pending booking backed by a hold on the slot's capacity.
// A closed or cancelled slot rejects bookings regardless of remaining seats;
// the operator override always wins over capacity arithmetic.
func (s *BookingService) Request(ctx context.Context, in RequestBookingInput) (domain.Booking, error) {
	if in.SlotID == "" {
		return domain.Booking{}, domain.ErrInvalidID
	}
	if in.Quantity <= 0 {
		return domain.Booking{}, domain.ErrInvalidQuantity
	}
	if in.CustomerRef == "" {
		return domain.Booking{}, domain.ErrCustomerRefRequired
	}

	now := s.clock.Now()
	var result domain.Booking

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		slot, err := s.repo.GetSlot(txCtx, in.SlotID)
		if err != nil {
			return err
		}
		if slot.Status == domain.SlotStatusClosed || slot.Status == domain.SlotStatusCancelled {
			return domain.ErrSlotClosed
		}
		// A full status is not rejected here: full is ledger-maintained and
		// can be stale when holds lapse before a sweep, so the acquire below
		// is the only capacity decision.

		bookingID := uuid.NewString()
		hold, err := s.ledger.Acquire(txCtx, AcquireInput{
			ResourceID:     in.SlotID,
			Quantity:       in.Quantity,
			TTL:            in.TTL,
			OwnerKind:      domain.OwnerKindBooking,
			OwnerRef:       bookingID,
			IdempotencyKey: in.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		// A retried request with the same idempotency key returns the
		// original hold; surface the booking that owns it instead of
		// creating a duplicate.
		if hold.OwnerRef != bookingID {
			existing, err := s.repo.GetBooking(txCtx, hold.OwnerRef)
			if err != nil {
				return err
			}
			result = existing
			return nil
		}

		booking := domain.Booking{
			ID:          bookingID,
			SlotID:      in.SlotID,
			HoldID:      hold.ID,
			Quantity:    in.Quantity,
			CustomerRef: in.CustomerRef,
			Status:      domain.BookingStatusPending,
			CreatedAt:   now,
		}
		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			return err
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// Confirm converts the booking's hold into confirmed seats. The ledger
// re-checks expiry inside the transaction, so a booking whose hold lapsed
// can never confirm even if the sweeper has not caught up yet.
func (s *BookingService) Confirm(ctx context.Context, bookingID string) (domain.Booking, error) {
	var result domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if booking.Terminal() {
			if booking.Status == domain.BookingStatusExpired {
				return domain.ErrHoldExpired
			}
			return domain.ErrBookingAlreadyTerminal
		}

		if err := s.ledger.Convert(txCtx, booking.HoldID); err != nil {
			return err
		}
		if err := s.repo.UpdateBookingStatus(txCtx, bookingID, domain.BookingStatusConfirmed); err != nil {
			return err
		}

		booking.Status = domain.BookingStatusConfirmed
		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// Cancel is the explicit cancellation path, the only one; expiry is never a
// cancellation. The hold may already have been swept expired, in which case
// its capacity was reclaimed and only the booking record moves.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) (domain.Booking, error) {
	var result domain.Booking
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := s.repo.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		if booking.Terminal() {
			return domain.ErrBookingAlreadyTerminal
		}

		if err := s.ledger.Release(txCtx, booking.HoldID); err != nil && err != domain.ErrHoldAlreadyTerminal {
			return err
		}
		if err := s.repo.UpdateBookingStatus(txCtx, bookingID, domain.BookingStatusCancelled); err != nil {
			return err
		}

		booking.Status = domain.BookingStatusCancelled
		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return result, nil
}

// SlotAvailable reports the slot-aggregate view of availability: the slot is
// not operator-closed and its pending (unexpired) plus confirmed seats are
// below capacity. A stale full status does not short-circuit the count, so
// this view agrees with the ledger's derived availability even before a sweep.
func (s *BookingService) SlotAvailable(ctx context.Context, slotID string) (bool, error) {
	now := s.clock.Now()
	var available bool
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		slot, err := s.repo.GetSlot(txCtx, slotID)
		if err != nil {
			return err
		}
		if slot.Status == domain.SlotStatusClosed || slot.Status == domain.SlotStatusCancelled {
			available = false
			return nil
		}
		resource, err := s.repo.GetSlotResource(txCtx, slotID)
		if err != nil {
			return err
		}
		reserved, err := s.repo.SumReservedBookings(txCtx, slotID, now)
		if err != nil {
			return err
		}
		available = reserved < resource.Capacity
		return nil
	})
	if err != nil {
		return false, err
	}
	return available, nil
}
