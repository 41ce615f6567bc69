package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusReleased  HoldStatus = "released"
	HoldStatusConverted HoldStatus = "converted"
	HoldStatusExpired   HoldStatus = "expired"
)

type OwnerKind string

const (
	OwnerKindCartItem OwnerKind = "cart_item"
	OwnerKindBooking  OwnerKind = "booking"
)

// Hold is a temporary claim against a Resource. A hold makes exactly one
// terminal transition (released, converted or expired); terminal holds are
// kept for audit, never deleted.
type Hold struct {
	ID             string
	ResourceID     string
	Quantity       int
	Status         HoldStatus
	OwnerKind      OwnerKind
	OwnerRef       string
	IdempotencyKey string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Terminal reports whether the hold has made its terminal transition.
func (h Hold) Terminal() bool {
	return h.Status != HoldStatusActive
}

// ExpiredAt reports whether the hold is logically inert at the given instant.
// An active hold past its expiry no longer counts against capacity even
// before the sweeper physically marks it.
func (h Hold) ExpiredAt(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
