package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// guestStore is the slice of the redis client the local backend needs.
type guestStore interface {
	HSet(ctx context.Context, key string, pairs ...any) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	GuestCartKey(deviceID string) string
}

// LocalBackend keeps guest carts in a redis hash per device. Each field is
// one line key, the value a JSON record carrying quantity, price and
// position. Writes refresh the hash TTL so an active guest cart never
// expires mid-session.
type LocalBackend struct {
	store guestStore
	ttl   time.Duration
}

type localLineRecord struct {
	Quantity       int `json:"quantity"`
	UnitPriceCents int `json:"unit_price_cents"`
	StockCeiling   int `json:"stock_ceiling"`
	Position       int `json:"position"`
}

// NewLocalBackend builds the guest cart backend.
func NewLocalBackend(store guestStore, ttl time.Duration) (*LocalBackend, error) {
	if store == nil {
		return nil, fmt.Errorf("guest store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("guest ttl must be positive")
	}
	return &LocalBackend{store: store, ttl: ttl}, nil
}

// BestEffort marks guest writes as non-authoritative: failures are logged,
// never rolled back.
func (b *LocalBackend) BestEffort() bool { return true }

func (b *LocalBackend) Load(ctx context.Context, owner Owner) ([]Line, error) {
	fields, err := b.store.HGetAll(ctx, b.store.GuestCartKey(owner.ID))
	if err != nil {
		return nil, fmt.Errorf("load guest cart: %w", err)
	}

	type positioned struct {
		line Line
		pos  int
	}
	entries := make([]positioned, 0, len(fields))
	for field, raw := range fields {
		key, err := parseLineField(field)
		if err != nil {
			// Unreadable fields are dropped rather than poisoning the cart.
			continue
		}
		var record localLineRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		if record.Quantity < 1 {
			continue
		}
		entries = append(entries, positioned{
			line: Line{
				ProductID:      key.ProductID,
				VariantKey:     key.VariantKey,
				Quantity:       record.Quantity,
				UnitPriceCents: record.UnitPriceCents,
				StockCeiling:   record.StockCeiling,
			},
			pos: record.Position,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

	lines := make([]Line, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.line)
	}
	return lines, nil
}

func (b *LocalBackend) SaveLine(ctx context.Context, owner Owner, line Line, position int) error {
	record := localLineRecord{
		Quantity:       line.Quantity,
		UnitPriceCents: line.UnitPriceCents,
		StockCeiling:   line.StockCeiling,
		Position:       position,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode guest line: %w", err)
	}
	key := b.store.GuestCartKey(owner.ID)
	if err := b.store.HSet(ctx, key, lineField(line.Key()), string(raw)); err != nil {
		return fmt.Errorf("save guest line: %w", err)
	}
	return b.store.Expire(ctx, key, b.ttl)
}

func (b *LocalBackend) DeleteLine(ctx context.Context, owner Owner, key LineKey) error {
	if err := b.store.HDel(ctx, b.store.GuestCartKey(owner.ID), lineField(key)); err != nil {
		return fmt.Errorf("delete guest line: %w", err)
	}
	return nil
}

func (b *LocalBackend) Clear(ctx context.Context, owner Owner) error {
	if err := b.store.Del(ctx, b.store.GuestCartKey(owner.ID)); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	return nil
}

func lineField(key LineKey) string {
	return key.ProductID.String() + "|" + key.VariantKey
}

func parseLineField(field string) (LineKey, error) {
	const uuidLen = 36
	if len(field) < uuidLen+1 || field[uuidLen] != '|' {
		return LineKey{}, fmt.Errorf("malformed line field %q", field)
	}
	id, err := uuid.Parse(field[:uuidLen])
	if err != nil {
		return LineKey{}, err
	}
	return LineKey{ProductID: id, VariantKey: field[uuidLen+1:]}, nil
}
