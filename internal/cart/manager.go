package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/reloved-shop/reloved-backend/internal/inventory"
	"github.com/reloved-shop/reloved-backend/pkg/enums"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
	"github.com/reloved-shop/reloved-backend/pkg/metrics"
)

type stockFetcher interface {
	FetchStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.Stock, error)
}

// Manager owns the live cart stores, one per owner, and runs the
// guest-to-authenticated merge on login.
type Manager struct {
	local     Backend
	remote    Backend
	stock     stockFetcher
	queueSize int
	logg      *logger.Logger
	stats     *metrics.CheckoutMetrics

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager builds the cart registry.
func NewManager(local, remote Backend, stock stockFetcher, queueSize int, logg *logger.Logger, stats *metrics.CheckoutMetrics) (*Manager, error) {
	if local == nil || remote == nil {
		return nil, fmt.Errorf("both cart backends required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock fetcher required")
	}
	return &Manager{
		local:     local,
		remote:    remote,
		stock:     stock,
		queueSize: queueSize,
		logg:      logg,
		stats:     stats,
		stores:    make(map[string]*Store),
	}, nil
}

// StoreFor returns the live store for the owner, loading persisted state on
// first use. The backend is selected by owner kind.
func (m *Manager) StoreFor(ctx context.Context, owner Owner) (*Store, error) {
	if owner.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}

	m.mu.Lock()
	store, ok := m.stores[owner.Key()]
	if !ok {
		store = NewStore(owner, m.backendFor(owner), m.queueSize, m.logg, m.stats)
		m.stores[owner.Key()] = store
	}
	m.mu.Unlock()

	if !ok {
		if err := store.Load(ctx); err != nil {
			m.drop(owner)
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

// Login merges the device's guest cart into the user's persisted cart and
// returns the authenticated store. For every key on either side the merged
// quantity is min(guest+server, live availability); availability and unit
// price come from the catalog at merge time, never from stale snapshots.
// The guest hash is cleared afterwards, which makes the merge idempotent: a
// second login with the same device finds nothing to add.
func (m *Manager) Login(ctx context.Context, deviceID, userID string) (*Store, error) {
	if deviceID == "" || userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id and user id required")
	}
	guest := GuestOwner(deviceID)
	user := UserOwner(userID)

	guestLines, err := m.local.Load(ctx, guest)
	if err != nil {
		// A lost guest cart must not block login.
		if m.logg != nil {
			m.logg.Warn(ctx, "guest cart unavailable during merge: "+err.Error())
		}
		guestLines = nil
	}
	serverLines, err := m.remote.Load(ctx, user)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load server cart")
	}

	merged, err := m.mergeLines(ctx, guestLines, serverLines)
	if err != nil {
		return nil, err
	}

	for position, line := range merged {
		if err := m.remote.SaveLine(ctx, user, line, position); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist merged cart")
		}
	}
	// Drop server keys that the merge clamped away entirely. Every prune is
	// attempted before failing.
	mergedKeys := make(map[LineKey]struct{}, len(merged))
	for _, line := range merged {
		mergedKeys[line.Key()] = struct{}{}
	}
	var pruneErrs []error
	for _, line := range serverLines {
		if _, keep := mergedKeys[line.Key()]; !keep {
			if err := m.remote.DeleteLine(ctx, user, line.Key()); err != nil {
				pruneErrs = append(pruneErrs, err)
			}
		}
	}
	if combined := multierr.Combine(pruneErrs...); combined != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, combined, "prune merged cart")
	}

	if err := m.local.Clear(ctx, guest); err != nil && m.logg != nil {
		m.logg.Warn(ctx, "guest cart clear failed after merge: "+err.Error())
	}
	m.evict(guest)
	m.evict(user)

	return m.StoreFor(ctx, user)
}

// Logout drops the user's live store; the next load starts from persisted
// state.
func (m *Manager) Logout(userID string) {
	m.evict(Owner{Kind: enums.OwnerKindUser, ID: userID})
}

func (m *Manager) mergeLines(ctx context.Context, guestLines, serverLines []Line) ([]Line, error) {
	ids := make([]uuid.UUID, 0, len(guestLines)+len(serverLines))
	for _, line := range serverLines {
		ids = append(ids, line.ProductID)
	}
	for _, line := range guestLines {
		ids = append(ids, line.ProductID)
	}
	stocks, err := m.stock.FetchStock(ctx, ids)
	if err != nil {
		return nil, err
	}

	guestQty := make(map[LineKey]int, len(guestLines))
	for _, line := range guestLines {
		guestQty[line.Key()] += line.Quantity
	}

	merged := make([]Line, 0, len(serverLines)+len(guestLines))
	seen := make(map[LineKey]struct{}, len(serverLines)+len(guestLines))

	appendMerged := func(key LineKey, total int) {
		stock, ok := stocks[key.ProductID]
		if !ok {
			// Product gone or inactive: availability 0, line dropped.
			return
		}
		available := stock.AvailabilityFor(key.VariantKey)
		if total > available {
			total = available
		}
		if total < 1 {
			return
		}
		merged = append(merged, Line{
			ProductID:      key.ProductID,
			VariantKey:     key.VariantKey,
			Quantity:       total,
			UnitPriceCents: stock.PriceCents,
			StockCeiling:   available,
		})
	}

	for _, line := range serverLines {
		key := line.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		appendMerged(key, line.Quantity+guestQty[key])
	}
	for _, line := range guestLines {
		key := line.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		appendMerged(key, line.Quantity)
	}
	return merged, nil
}

func (m *Manager) backendFor(owner Owner) Backend {
	if owner.Kind == enums.OwnerKindGuest {
		return m.local
	}
	return m.remote
}

func (m *Manager) drop(owner Owner) {
	m.mu.Lock()
	delete(m.stores, owner.Key())
	m.mu.Unlock()
}

func (m *Manager) evict(owner Owner) {
	m.mu.Lock()
	store, ok := m.stores[owner.Key()]
	delete(m.stores, owner.Key())
	m.mu.Unlock()
	if ok {
		store.Close()
	}
}

// Shutdown closes every live store, draining queued writes.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, store := range m.stores {
		stores = append(stores, store)
	}
	m.stores = make(map[string]*Store)
	m.mu.Unlock()

	for _, store := range stores {
		store.Close()
	}
}
