package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lsendel/commerce-sub005/internal/clock"
	"github.com/lsendel/commerce-sub005/internal/domain"
)

type AdminRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateResource(ctx context.Context, resource domain.Resource) error
	CreateSlot(ctx context.Context, slot domain.Slot) error
	ListResources(ctx context.Context, kind domain.ResourceKind) ([]domain.Resource, error)
	ListSlots(ctx context.Context) ([]SlotInfo, error)
	GetSlotForUpdate(ctx context.Context, slotID string) (domain.Slot, error)
	UpdateSlotStatus(ctx context.Context, slotID string, status domain.SlotStatus) error
}

// SlotInfo pairs a slot with its capacity resource for listings.
type SlotInfo struct {
	Resource domain.Resource
	Slot     domain.Slot
}

// AdminService manages the catalog side: products, slots and the operator
// overrides on slot status.
type AdminService struct {
	repo   AdminRepository
	ledger *LedgerService
	clock  clock.Clock
}

func NewAdminService(repo AdminRepository, ledger *LedgerService, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:   repo,
		ledger: ledger,
		clock:  clk,
	}
}

type CreateProductInput struct {
	Name  string
	Stock int
}

func (s *AdminService) CreateProduct(ctx context.Context, in CreateProductInput) (domain.Resource, error) {
	if in.Name == "" {
		return domain.Resource{}, domain.ErrProductNameRequired
	}
	if in.Stock <= 0 {
		return domain.Resource{}, domain.ErrInvalidCapacity
	}

	resource := domain.Resource{
		ID:       uuid.NewString(),
		Kind:     domain.ResourceKindInventory,
		Name:     in.Name,
		Capacity: in.Stock,
	}
	if err := s.repo.CreateResource(ctx, resource); err != nil {
		return domain.Resource{}, err
	}
	return resource, nil
}

type CreateSlotInput struct {
	Name     string
	StartsAt *time.Time
	Capacity int
}

func (s *AdminService) CreateSlot(ctx context.Context, in CreateSlotInput) (SlotInfo, error) {
	if in.Name == "" {
		return SlotInfo{}, domain.ErrSlotNameRequired
	}
	if in.Capacity <= 0 {
		return SlotInfo{}, domain.ErrInvalidCapacity
	}
	startsAt := s.clock.Now()
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	resource := domain.Resource{
		ID:       uuid.NewString(),
		Kind:     domain.ResourceKindSlot,
		Name:     in.Name,
		Capacity: in.Capacity,
	}
	slot := domain.Slot{
		ResourceID: resource.ID,
		StartsAt:   startsAt,
		Status:     domain.SlotStatusOpen,
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateResource(txCtx, resource); err != nil {
			return err
		}
		return s.repo.CreateSlot(txCtx, slot)
	})
	if err != nil {
		return SlotInfo{}, err
	}
	return SlotInfo{Resource: resource, Slot: slot}, nil
}

// CloseSlot stops new bookings on a slot regardless of remaining capacity.
// Existing holds keep their lifecycle; only admission is blocked.
func (s *AdminService) CloseSlot(ctx context.Context, slotID string) error {
	return s.overrideSlotStatus(ctx, slotID, domain.SlotStatusClosed)
}

// CancelSlot marks a slot cancelled. Releasing or refunding its existing
// bookings is the booking flow's concern, not a side effect here.
func (s *AdminService) CancelSlot(ctx context.Context, slotID string) error {
	return s.overrideSlotStatus(ctx, slotID, domain.SlotStatusCancelled)
}

func (s *AdminService) overrideSlotStatus(ctx context.Context, slotID string, status domain.SlotStatus) error {
	if slotID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetSlotForUpdate(txCtx, slotID); err != nil {
			return err
		}
		return s.repo.UpdateSlotStatus(txCtx, slotID, status)
	})
}

// ReopenSlot lifts an operator override. The slot lands on open or full
// depending on derived availability at the time of reopening.
func (s *AdminService) ReopenSlot(ctx context.Context, slotID string) error {
	if slotID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetSlotForUpdate(txCtx, slotID); err != nil {
			return err
		}
		available, err := s.ledger.Availability(txCtx, slotID)
		if err != nil {
			return err
		}
		status := domain.SlotStatusOpen
		if available == 0 {
			status = domain.SlotStatusFull
		}
		return s.repo.UpdateSlotStatus(txCtx, slotID, status)
	})
}

func (s *AdminService) ListProducts(ctx context.Context) ([]domain.Resource, error) {
	return s.repo.ListResources(ctx, domain.ResourceKindInventory)
}

func (s *AdminService) ListSlots(ctx context.Context) ([]SlotInfo, error) {
	return s.repo.ListSlots(ctx)
}
