package domain

import "errors"

var (
	ErrResourceNotFound       = errors.New("resource not found")
	ErrSlotNotFound           = errors.New("slot not found")
	ErrHoldNotFound           = errors.New("hold not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrCapacityExceeded       = errors.New("capacity exceeded")
	ErrHoldExpired            = errors.New("hold expired")
	ErrHoldAlreadyTerminal    = errors.New("hold already terminal")
	ErrBookingAlreadyTerminal = errors.New("booking already terminal")
	ErrSlotClosed             = errors.New("slot not open for booking")
	ErrInvariantViolation     = errors.New("capacity invariant violated")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidTTL             = errors.New("invalid ttl")
	ErrInvalidCapacity        = errors.New("invalid capacity")
	ErrInvalidID              = errors.New("invalid id")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")
	ErrProductNameRequired    = errors.New("product name required")
	ErrSlotNameRequired       = errors.New("slot name required")
	ErrOwnerRefRequired       = errors.New("owner reference required")
	ErrInvalidOwnerKind       = errors.New("invalid owner kind")
	ErrCustomerRefRequired    = errors.New("customer reference required")
)
