package cart

import "context"

// Backend is the persistence surface behind a cart store. Two
// implementations exist: LocalBackend (device-scoped redis hash, guest
// carts, best-effort) and RemoteBackend (cart_items rows, authenticated
// carts, authoritative). Callers depend only on this interface; the store
// selects the implementation by owner kind.
type Backend interface {
	// Load returns all persisted lines in position order.
	Load(ctx context.Context, owner Owner) ([]Line, error)
	// SaveLine upserts the full latest state for one line key.
	SaveLine(ctx context.Context, owner Owner, line Line, position int) error
	// DeleteLine removes one line key.
	DeleteLine(ctx context.Context, owner Owner, key LineKey) error
	// Clear wipes every line for the owner.
	Clear(ctx context.Context, owner Owner) error
	// BestEffort reports whether write failures should be swallowed
	// (logged) instead of rolled back.
	BestEffort() bool
}
