package app

import (
	"context"
	"sync"
	"time"

	"github.com/lsendel/commerce-sub005/internal/domain"
)

// fakeStore backs every service repository interface with in-memory maps.
// WithTx serializes callers with a mutex the way the real store serializes on
// the resource row lock; a nested WithTx joins the ambient "transaction",
// mirroring the tx-in-context behavior of the postgres package.
type fakeStore struct {
	mu            sync.Mutex
	resources     map[string]*domain.Resource
	resourceOrder []string
	slots         map[string]*domain.Slot
	holds         map[string]*domain.Hold
	bookings      map[string]*domain.Booking
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		resources: make(map[string]*domain.Resource),
		slots:     make(map[string]*domain.Slot),
		holds:     make(map[string]*domain.Hold),
		bookings:  make(map[string]*domain.Booking),
	}
}

func (f *fakeStore) addResource(res domain.Resource) {
	r := res
	f.resources[res.ID] = &r
	f.resourceOrder = append(f.resourceOrder, res.ID)
}

func (f *fakeStore) addSlot(res domain.Resource, slot domain.Slot) {
	f.addResource(res)
	s := slot
	f.slots[slot.ResourceID] = &s
}

func (f *fakeStore) addHold(hold domain.Hold) {
	h := hold
	f.holds[hold.ID] = &h
}

type fakeTxKey struct{}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(context.WithValue(ctx, fakeTxKey{}, true))
}

func (f *fakeStore) GetResource(_ context.Context, resourceID string) (domain.Resource, error) {
	res, ok := f.resources[resourceID]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return *res, nil
}

func (f *fakeStore) GetResourceForUpdate(ctx context.Context, resourceID string) (domain.Resource, error) {
	return f.GetResource(ctx, resourceID)
}

func (f *fakeStore) FindHoldByIdempotencyKey(_ context.Context, resourceID, key string) (*domain.Hold, error) {
	for _, h := range f.holds {
		if h.ResourceID == resourceID && h.IdempotencyKey == key {
			copied := *h
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SumActiveHolds(_ context.Context, resourceID string, now time.Time) (int, error) {
	total := 0
	for _, h := range f.holds {
		if h.ResourceID != resourceID || h.Status != domain.HoldStatusActive {
			continue
		}
		if !h.ExpiresAt.After(now) {
			continue
		}
		total += h.Quantity
	}
	return total, nil
}

func (f *fakeStore) CreateHold(_ context.Context, hold domain.Hold) error {
	if _, ok := f.resources[hold.ResourceID]; !ok {
		return domain.ErrResourceNotFound
	}
	for _, h := range f.holds {
		if h.ResourceID == hold.ResourceID && h.IdempotencyKey == hold.IdempotencyKey {
			return domain.ErrIdempotencyConflict
		}
	}
	f.addHold(hold)
	return nil
}

func (f *fakeStore) GetHoldForUpdate(_ context.Context, holdID string) (domain.Hold, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return *h, nil
}

func (f *fakeStore) UpdateHoldStatus(_ context.Context, holdID string, status domain.HoldStatus) error {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	h.Status = status
	return nil
}

func (f *fakeStore) AddConfirmed(_ context.Context, resourceID string, delta int) error {
	res, ok := f.resources[resourceID]
	if !ok {
		return domain.ErrResourceNotFound
	}
	res.Confirmed += delta
	return nil
}

func (f *fakeStore) GetSlot(_ context.Context, resourceID string) (domain.Slot, error) {
	s, ok := f.slots[resourceID]
	if !ok {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return *s, nil
}

func (f *fakeStore) GetSlotForUpdate(ctx context.Context, slotID string) (domain.Slot, error) {
	return f.GetSlot(ctx, slotID)
}

func (f *fakeStore) UpdateSlotStatus(_ context.Context, resourceID string, status domain.SlotStatus) error {
	s, ok := f.slots[resourceID]
	if !ok {
		return domain.ErrSlotNotFound
	}
	s.Status = status
	return nil
}

func (f *fakeStore) GetSlotResource(ctx context.Context, slotID string) (domain.Resource, error) {
	if _, ok := f.slots[slotID]; !ok {
		return domain.Resource{}, domain.ErrSlotNotFound
	}
	return f.GetResource(ctx, slotID)
}

func (f *fakeStore) CreateBooking(_ context.Context, booking domain.Booking) error {
	if _, ok := f.slots[booking.SlotID]; !ok {
		return domain.ErrSlotNotFound
	}
	b := booking
	f.bookings[booking.ID] = &b
	return nil
}

func (f *fakeStore) GetBooking(_ context.Context, bookingID string) (domain.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return *b, nil
}

func (f *fakeStore) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error) {
	return f.GetBooking(ctx, bookingID)
}

func (f *fakeStore) UpdateBookingStatus(_ context.Context, bookingID string, status domain.BookingStatus) error {
	b, ok := f.bookings[bookingID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.Status = status
	return nil
}

func (f *fakeStore) SumReservedBookings(_ context.Context, slotID string, now time.Time) (int, error) {
	total := 0
	for _, b := range f.bookings {
		if b.SlotID != slotID {
			continue
		}
		switch b.Status {
		case domain.BookingStatusConfirmed:
			total += b.Quantity
		case domain.BookingStatusPending:
			h, ok := f.holds[b.HoldID]
			if ok && h.Status == domain.HoldStatusActive && h.ExpiresAt.After(now) {
				total += b.Quantity
			}
		}
	}
	return total, nil
}

func (f *fakeStore) CreateResource(_ context.Context, resource domain.Resource) error {
	f.addResource(resource)
	return nil
}

func (f *fakeStore) CreateSlot(_ context.Context, slot domain.Slot) error {
	if _, ok := f.resources[slot.ResourceID]; !ok {
		return domain.ErrResourceNotFound
	}
	s := slot
	f.slots[slot.ResourceID] = &s
	return nil
}

func (f *fakeStore) ListResources(_ context.Context, kind domain.ResourceKind) ([]domain.Resource, error) {
	var out []domain.Resource
	for _, id := range f.resourceOrder {
		if res := f.resources[id]; res.Kind == kind {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSlots(_ context.Context) ([]SlotInfo, error) {
	var out []SlotInfo
	for _, id := range f.resourceOrder {
		if s, ok := f.slots[id]; ok {
			out = append(out, SlotInfo{Resource: *f.resources[id], Slot: *s})
		}
	}
	return out, nil
}

func (f *fakeStore) ExpireHolds(_ context.Context, now time.Time) (int, error) {
	count := 0
	for _, h := range f.holds {
		if h.Status == domain.HoldStatusActive && !h.ExpiresAt.After(now) {
			h.Status = domain.HoldStatusExpired
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ExpirePendingBookings(_ context.Context) (int, error) {
	count := 0
	for _, b := range f.bookings {
		if b.Status != domain.BookingStatusPending {
			continue
		}
		if h, ok := f.holds[b.HoldID]; ok && h.Status == domain.HoldStatusExpired {
			b.Status = domain.BookingStatusExpired
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ReopenFullSlots(ctx context.Context, now time.Time) (int, error) {
	count := 0
	for id, s := range f.slots {
		if s.Status != domain.SlotStatusFull {
			continue
		}
		res := f.resources[id]
		active, _ := f.SumActiveHolds(ctx, id, now)
		if res.Capacity-res.Confirmed-active > 0 {
			s.Status = domain.SlotStatusOpen
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountActiveHolds(_ context.Context, now time.Time) (int, error) {
	count := 0
	for _, h := range f.holds {
		if h.Status == domain.HoldStatusActive && h.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}
