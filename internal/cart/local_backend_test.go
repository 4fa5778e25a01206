package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubGuestStore struct {
	hashes  map[string]map[string]string
	expires []time.Duration
}

func newStubGuestStore() *stubGuestStore {
	return &stubGuestStore{hashes: make(map[string]map[string]string)}
}

func (s *stubGuestStore) HSet(_ context.Context, key string, pairs ...any) error {
	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string)
		s.hashes[key] = hash
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		hash[pairs[i].(string)] = pairs[i+1].(string)
	}
	return nil
}

func (s *stubGuestStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (s *stubGuestStore) HDel(_ context.Context, key string, fields ...string) error {
	for _, f := range fields {
		delete(s.hashes[key], f)
	}
	return nil
}

func (s *stubGuestStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.hashes, k)
	}
	return nil
}

func (s *stubGuestStore) Expire(_ context.Context, _ string, ttl time.Duration) error {
	s.expires = append(s.expires, ttl)
	return nil
}

func (s *stubGuestStore) GuestCartKey(deviceID string) string {
	return "rl:cart:guest:" + deviceID
}

func TestLocalBackendRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()
	store := newStubGuestStore()
	backend, err := NewLocalBackend(store, time.Hour)
	if err != nil {
		t.Fatalf("new local backend: %v", err)
	}
	ctx := context.Background()
	owner := GuestOwner("device-1")

	first := Line{ProductID: uuid.New(), VariantKey: "M", Quantity: 2, UnitPriceCents: 900, StockCeiling: 4}
	second := Line{ProductID: uuid.New(), VariantKey: "", Quantity: 1, UnitPriceCents: 300, StockCeiling: 9}

	if err := backend.SaveLine(ctx, owner, first, 0); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := backend.SaveLine(ctx, owner, second, 1); err != nil {
		t.Fatalf("save second: %v", err)
	}

	lines, err := backend.Load(ctx, owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != first || lines[1] != second {
		t.Fatalf("order or content lost: %+v", lines)
	}
	if len(store.expires) != 2 {
		t.Fatalf("ttl should refresh on every write, got %d refreshes", len(store.expires))
	}
}

func TestLocalBackendDeleteAndClear(t *testing.T) {
	t.Parallel()
	store := newStubGuestStore()
	backend, _ := NewLocalBackend(store, time.Hour)
	ctx := context.Background()
	owner := GuestOwner("device-2")

	line := Line{ProductID: uuid.New(), VariantKey: "S", Quantity: 1, UnitPriceCents: 100, StockCeiling: 1}
	if err := backend.SaveLine(ctx, owner, line, 0); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := backend.DeleteLine(ctx, owner, line.Key()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	lines, err := backend.Load(ctx, owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", lines)
	}

	if err := backend.SaveLine(ctx, owner, line, 0); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if err := backend.Clear(ctx, owner); err != nil {
		t.Fatalf("clear: %v", err)
	}
	lines, _ = backend.Load(ctx, owner)
	if len(lines) != 0 {
		t.Fatalf("expected cleared cart, got %+v", lines)
	}
}

func TestLocalBackendSkipsCorruptFields(t *testing.T) {
	t.Parallel()
	store := newStubGuestStore()
	backend, _ := NewLocalBackend(store, time.Hour)
	ctx := context.Background()
	owner := GuestOwner("device-3")

	key := store.GuestCartKey(owner.ID)
	store.hashes[key] = map[string]string{
		"not-a-line":               `{"quantity":3}`,
		uuid.NewString() + "|M":    `not json`,
		uuid.NewString() + "|":     `{"quantity":0}`,
		uuid.New().String() + "|L": `{"quantity":2,"unit_price_cents":100,"stock_ceiling":5,"position":0}`,
	}

	lines, err := backend.Load(ctx, owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("expected the single intact line, got %+v", lines)
	}
}
