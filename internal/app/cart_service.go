package app

import (
	"context"
	"time"

	"github.com/lsendel/commerce-sub005/internal/domain"
)

// CartService exposes cart-item stock holds over the reservation ledger.
// A held reservation is never trusted later in the session: checkout always
// re-validates through Convert, which fails on anything but a live hold.
type CartService struct {
	ledger *LedgerService
}

func NewCartService(ledger *LedgerService) *CartService {
	return &CartService{ledger: ledger}
}

type HoldItemInput struct {
	ResourceID     string
	Quantity       int
	CartItemID     string
	TTL            time.Duration
	IdempotencyKey string
}

// HoldItem reserves stock when an item enters a cart.
func (s *CartService) HoldItem(ctx context.Context, in HoldItemInput) (domain.Hold, error) {
	if in.CartItemID == "" {
		return domain.Hold{}, domain.ErrOwnerRefRequired
	}
	return s.ledger.Acquire(ctx, AcquireInput{
		ResourceID:     in.ResourceID,
		Quantity:       in.Quantity,
		TTL:            in.TTL,
		OwnerKind:      domain.OwnerKindCartItem,
		OwnerRef:       in.CartItemID,
		IdempotencyKey: in.IdempotencyKey,
	})
}

// ReleaseItem frees the hold when the item leaves the cart or the cart
// expires. Safe to call twice; the second call reports
// ErrHoldAlreadyTerminal without freeing capacity again.
func (s *CartService) ReleaseItem(ctx context.Context, holdID string) error {
	return s.ledger.Release(ctx, holdID)
}

// CheckoutItem converts the hold into committed stock at order placement.
// An expired hold fails with ErrHoldExpired; the shopper re-acquires.
func (s *CartService) CheckoutItem(ctx context.Context, holdID string) error {
	return s.ledger.Convert(ctx, holdID)
}
