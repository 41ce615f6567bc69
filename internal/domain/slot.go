package domain

import "time"

type SlotStatus string

const (
	SlotStatusOpen      SlotStatus = "open"
	SlotStatusFull      SlotStatus = "full"
	SlotStatusClosed    SlotStatus = "closed"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// Slot is the booking specialization of a Resource: a time-boxed experience
// (tour departure, venue session) with seat capacity. Status is independent
// of the capacity numbers: closed and cancelled are operator overrides that
// block new bookings regardless of remaining seats, while full/open track
// derived availability.
type Slot struct {
	ResourceID string
	StartsAt   time.Time
	Status     SlotStatus
}

// AcceptsBookings reports whether the slot status permits new booking
// requests. Capacity is checked separately; status always wins.
func (s Slot) AcceptsBookings() bool {
	return s.Status == SlotStatusOpen
}
