package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// Booking is a request for seats on a slot, backed by a hold. It references
// its hold by ID only; hold state is always re-read, never carried.
type Booking struct {
	ID          string
	SlotID      string
	HoldID      string
	Quantity    int
	CustomerRef string
	Status      BookingStatus
	CreatedAt   time.Time
}

// Terminal reports whether the booking reached a final state.
func (b Booking) Terminal() bool {
	return b.Status != BookingStatusPending
}
