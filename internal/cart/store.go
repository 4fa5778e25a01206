package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
	"github.com/reloved-shop/reloved-backend/pkg/metrics"
)

const persistTimeout = 10 * time.Second

// persistOp is one queued backend write. run carries the full latest state
// for its key, captured at mutation time; rollback restores the
// pre-mutation in-memory state when an authoritative write fails.
type persistOp struct {
	run      func(ctx context.Context) error
	rollback func()
	done     chan error
}

// Store holds one owner's in-memory cart. Mutations apply optimistically
// under the store lock in call order; the matching backend writes run on a
// single worker goroutine in the same order, so the backend always receives
// per-key states in mutation order (last mutation wins at the backend,
// regardless of network completion order).
type Store struct {
	owner   Owner
	backend Backend
	logg    *logger.Logger
	stats   *metrics.CheckoutMetrics

	mu      sync.Mutex
	lines   []Line
	subs    map[int]func(Snapshot)
	nextSub int

	qmu    sync.Mutex
	qcond  *sync.Cond
	queue  []persistOp
	closed bool
	wg     sync.WaitGroup
}

// NewStore builds a store for the owner and starts its persistence worker.
func NewStore(owner Owner, backend Backend, queueSize int, logg *logger.Logger, stats *metrics.CheckoutMetrics) *Store {
	if queueSize < 1 {
		queueSize = 1
	}
	s := &Store{
		owner:   owner,
		backend: backend,
		logg:    logg,
		stats:   stats,
		subs:    make(map[int]func(Snapshot)),
		queue:   make([]persistOp, 0, queueSize),
	}
	s.qcond = sync.NewCond(&s.qmu)
	s.wg.Add(1)
	go s.worker()
	return s
}

// Owner returns the identity this store belongs to.
func (s *Store) Owner() Owner {
	return s.owner
}

// Load replaces the in-memory state with the persisted lines.
func (s *Store) Load(ctx context.Context) error {
	lines, err := s.backend.Load(ctx, s.owner)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load cart")
	}
	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()
	s.notify()
	return nil
}

// AddLine adds quantity for a line key, clamped to the stock ceiling, and
// reports the effective quantity actually added (0 when the line was already
// at its ceiling). A clamped add never fails silently and never exceeds
// stock. The returned channel resolves when the backend write lands.
func (s *Store) AddLine(productID uuid.UUID, variantKey string, requestedQty, unitPriceCents, stockCeiling int) (int, <-chan error, error) {
	if productID == uuid.Nil {
		return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if requestedQty < 1 {
		return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity must be at least 1")
	}
	if stockCeiling < 1 {
		return 0, nil, pkgerrors.New(pkgerrors.CodeStockInsufficient, "product is out of stock")
	}

	s.mu.Lock()
	idx := s.indexOf(LineKey{ProductID: productID, VariantKey: variantKey})

	var (
		effective int
		saved     Line
		position  int
		rollback  func()
	)
	if idx >= 0 {
		prev := s.lines[idx]
		newQty := prev.Quantity + requestedQty
		if newQty > stockCeiling {
			newQty = stockCeiling
		}
		effective = newQty - prev.Quantity
		s.lines[idx].Quantity = newQty
		s.lines[idx].UnitPriceCents = unitPriceCents
		s.lines[idx].StockCeiling = stockCeiling
		saved = s.lines[idx]
		position = idx
		rollback = func() {
			if i := s.indexOf(prev.Key()); i >= 0 {
				s.lines[i] = prev
			}
		}
	} else {
		newQty := requestedQty
		if newQty > stockCeiling {
			newQty = stockCeiling
		}
		effective = newQty
		line := Line{
			ProductID:      productID,
			VariantKey:     variantKey,
			Quantity:       newQty,
			UnitPriceCents: unitPriceCents,
			StockCeiling:   stockCeiling,
		}
		s.lines = append(s.lines, line)
		saved = line
		position = len(s.lines) - 1
		rollback = func() {
			s.removeAt(s.indexOf(line.Key()))
		}
	}
	done := s.enqueue(func(ctx context.Context) error {
		return s.backend.SaveLine(ctx, s.owner, saved, position)
	}, rollback)
	s.mu.Unlock()

	s.notify()
	return effective, done, nil
}

// UpdateQuantity applies a delta clamped to [1, stock ceiling]. A decrement
// never drops a line below 1; removal is explicit via RemoveLine.
func (s *Store) UpdateQuantity(productID uuid.UUID, variantKey string, delta int) (int, <-chan error, error) {
	s.mu.Lock()
	idx := s.indexOf(LineKey{ProductID: productID, VariantKey: variantKey})
	if idx < 0 {
		s.mu.Unlock()
		return 0, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	prev := s.lines[idx]
	newQty := prev.Quantity + delta
	if newQty < 1 {
		newQty = 1
	}
	if newQty > prev.StockCeiling {
		newQty = prev.StockCeiling
	}
	if newQty == prev.Quantity {
		s.mu.Unlock()
		return newQty, closedDone(), nil
	}

	s.lines[idx].Quantity = newQty
	saved := s.lines[idx]
	position := idx
	done := s.enqueue(func(ctx context.Context) error {
		return s.backend.SaveLine(ctx, s.owner, saved, position)
	}, func() {
		if i := s.indexOf(prev.Key()); i >= 0 {
			s.lines[i] = prev
		}
	})
	s.mu.Unlock()

	s.notify()
	return newQty, done, nil
}

// RemoveLine deletes the line locally and queues the backend delete.
func (s *Store) RemoveLine(productID uuid.UUID, variantKey string) (<-chan error, error) {
	key := LineKey{ProductID: productID, VariantKey: variantKey}

	s.mu.Lock()
	idx := s.indexOf(key)
	if idx < 0 {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	removed := s.lines[idx]
	removedAt := idx
	s.removeAt(idx)
	done := s.enqueue(func(ctx context.Context) error {
		return s.backend.DeleteLine(ctx, s.owner, key)
	}, func() {
		at := removedAt
		if at > len(s.lines) {
			at = len(s.lines)
		}
		s.lines = append(s.lines[:at], append([]Line{removed}, s.lines[at:]...)...)
	})
	s.mu.Unlock()

	s.notify()
	return done, nil
}

// Clear empties the cart and queues a full wipe for the owner.
func (s *Store) Clear() <-chan error {
	s.mu.Lock()
	prev := s.lines
	s.lines = nil
	done := s.enqueue(func(ctx context.Context) error {
		return s.backend.Clear(ctx, s.owner)
	}, func() {
		s.lines = prev
	})
	s.mu.Unlock()

	s.notify()
	return done
}

// Snapshot returns an immutable copy of the current lines.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a state-change callback and returns its cancel func.
// Callbacks run outside the store lock.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close stops the persistence worker after draining queued writes.
func (s *Store) Close() {
	s.qmu.Lock()
	if !s.closed {
		s.closed = true
		s.qcond.Signal()
	}
	s.qmu.Unlock()
	s.wg.Wait()
}

func (s *Store) worker() {
	defer s.wg.Done()
	for {
		s.qmu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.qcond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.qmu.Unlock()
			return
		}
		op := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		s.execute(op)
	}
}

func (s *Store) execute(op persistOp) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	err := op.run(ctx)
	cancel()

	if err == nil {
		op.done <- nil
		close(op.done)
		return
	}

	s.stats.IncPersistFailure()
	if s.backend.BestEffort() {
		// Guest writes are best-effort; the in-memory cart stands.
		if s.logg != nil {
			s.logg.Warn(context.Background(), "guest cart write failed: "+err.Error())
		}
		op.done <- nil
		close(op.done)
		return
	}

	s.mu.Lock()
	if op.rollback != nil {
		op.rollback()
	}
	s.mu.Unlock()
	s.notify()

	if s.logg != nil {
		lctx := s.logg.WithOwner(context.Background(), s.owner.Kind.String(), s.owner.ID)
		s.logg.Error(lctx, "cart write failed, local state rolled back", err)
	}
	op.done <- pkgerrors.Wrap(pkgerrors.CodePersistence, err, "cart write failed")
	close(op.done)
}

// enqueue appends a backend write to the worker queue. The queue is
// unbounded so callers holding the store lock never block; callers hold
// s.mu so queue order matches mutation order.
func (s *Store) enqueue(run func(ctx context.Context) error, rollback func()) <-chan error {
	op := persistOp{run: run, rollback: rollback, done: make(chan error, 1)}
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		op.done <- pkgerrors.New(pkgerrors.CodePersistence, "cart store closed")
		close(op.done)
		return op.done
	}
	s.queue = append(s.queue, op)
	s.qcond.Signal()
	s.qmu.Unlock()
	return op.done
}

func (s *Store) indexOf(key LineKey) int {
	for i, line := range s.lines {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(idx int) {
	if idx < 0 || idx >= len(s.lines) {
		return
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
}

func (s *Store) snapshotLocked() Snapshot {
	out := make(Snapshot, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) notify() {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	callbacks := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(snapshot)
	}
}

func closedDone() <-chan error {
	done := make(chan error)
	close(done)
	return done
}
