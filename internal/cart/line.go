package cart

import (
	"github.com/google/uuid"

	"github.com/reloved-shop/reloved-backend/pkg/enums"
)

// Owner identifies whose cart a store holds: a guest device or an
// authenticated user. Exactly one identity is active at a time.
type Owner struct {
	Kind enums.OwnerKind
	ID   string
}

// Key returns the registry/persistence key for the owner.
func (o Owner) Key() string {
	return o.Kind.String() + ":" + o.ID
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool {
	return o.Kind == enums.OwnerKindUser
}

// GuestOwner builds a device-scoped owner.
func GuestOwner(deviceID string) Owner {
	return Owner{Kind: enums.OwnerKindGuest, ID: deviceID}
}

// UserOwner builds an authenticated owner.
func UserOwner(userID string) Owner {
	return Owner{Kind: enums.OwnerKindUser, ID: userID}
}

// LineKey is the uniqueness key for a cart line. VariantKey is the selected
// size, empty for products without variants.
type LineKey struct {
	ProductID  uuid.UUID
	VariantKey string
}

// Line is one cart entry. UnitPriceCents and StockCeiling are snapshots
// taken when the line was last touched; the authoritative check happens at
// checkout.
type Line struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant_key"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	StockCeiling   int       `json:"stock_ceiling"`
}

// Key returns the line's uniqueness key.
func (l Line) Key() LineKey {
	return LineKey{ProductID: l.ProductID, VariantKey: l.VariantKey}
}

// Snapshot is an ordered, immutable copy of a cart's lines.
type Snapshot []Line

// Subtotal sums unit price times quantity across the snapshot.
func (s Snapshot) Subtotal() int {
	total := 0
	for _, line := range s {
		total += line.UnitPriceCents * line.Quantity
	}
	return total
}

// ProductIDs returns the distinct product ids in snapshot order.
func (s Snapshot) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(s))
	ids := make([]uuid.UUID, 0, len(s))
	for _, line := range s {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
