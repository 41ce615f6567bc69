package domain

type ResourceKind string

const (
	ResourceKindInventory ResourceKind = "inventory"
	ResourceKindSlot      ResourceKind = "slot"
)

// Resource is a finite pool of reservable units: a product variant's stock
// count or a booking slot's seat count. Availability is always derived from
// capacity, confirmed units and live holds; it is never stored.
type Resource struct {
	ID        string
	Kind      ResourceKind
	Name      string
	Capacity  int
	Confirmed int
}
