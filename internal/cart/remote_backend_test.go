package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reloved-shop/reloved-backend/pkg/db/models"
)

func openCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.CartItem{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func TestRemoteBackendUpsertKeepsOneRowPerKey(t *testing.T) {
	t.Parallel()
	conn := openCartTestDB(t)
	backend, err := NewRemoteBackend(conn)
	if err != nil {
		t.Fatalf("new remote backend: %v", err)
	}
	ctx := context.Background()
	owner := UserOwner("user-7")
	productID := uuid.New()

	line := Line{ProductID: productID, VariantKey: "M", Quantity: 1, UnitPriceCents: 500, StockCeiling: 3}
	if err := backend.SaveLine(ctx, owner, line, 0); err != nil {
		t.Fatalf("save: %v", err)
	}
	line.Quantity = 3
	if err := backend.SaveLine(ctx, owner, line, 0); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var count int64
	if err := conn.Model(&models.CartItem{}).Where("owner_id = ?", owner.Key()).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row per line key, got %d", count)
	}

	lines, err := backend.Load(ctx, owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("latest state not persisted: %+v", lines)
	}
}

func TestRemoteBackendVariantKeysAreDistinctLines(t *testing.T) {
	t.Parallel()
	conn := openCartTestDB(t)
	backend, _ := NewRemoteBackend(conn)
	ctx := context.Background()
	owner := UserOwner("user-8")
	productID := uuid.New()

	aggregate := Line{ProductID: productID, VariantKey: "", Quantity: 1, UnitPriceCents: 500, StockCeiling: 5}
	sized := Line{ProductID: productID, VariantKey: "L", Quantity: 2, UnitPriceCents: 500, StockCeiling: 5}
	if err := backend.SaveLine(ctx, owner, aggregate, 0); err != nil {
		t.Fatalf("save aggregate: %v", err)
	}
	if err := backend.SaveLine(ctx, owner, sized, 1); err != nil {
		t.Fatalf("save sized: %v", err)
	}

	lines, err := backend.Load(ctx, owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("variant and aggregate lines must not collide, got %+v", lines)
	}
	if lines[0].VariantKey != "" || lines[1].VariantKey != "L" {
		t.Fatalf("position order lost: %+v", lines)
	}
}

func TestRemoteBackendDeleteAndClearScopeToOwner(t *testing.T) {
	t.Parallel()
	conn := openCartTestDB(t)
	backend, _ := NewRemoteBackend(conn)
	ctx := context.Background()
	mine := UserOwner("user-9")
	other := UserOwner("user-10")
	productID := uuid.New()

	line := Line{ProductID: productID, VariantKey: "", Quantity: 1, UnitPriceCents: 100, StockCeiling: 2}
	if err := backend.SaveLine(ctx, mine, line, 0); err != nil {
		t.Fatalf("save mine: %v", err)
	}
	if err := backend.SaveLine(ctx, other, line, 0); err != nil {
		t.Fatalf("save other: %v", err)
	}

	if err := backend.DeleteLine(ctx, mine, line.Key()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	lines, _ := backend.Load(ctx, mine)
	if len(lines) != 0 {
		t.Fatalf("expected my cart empty, got %+v", lines)
	}
	lines, _ = backend.Load(ctx, other)
	if len(lines) != 1 {
		t.Fatalf("other owner's cart must be untouched, got %+v", lines)
	}

	if err := backend.Clear(ctx, other); err != nil {
		t.Fatalf("clear: %v", err)
	}
	lines, _ = backend.Load(ctx, other)
	if len(lines) != 0 {
		t.Fatalf("expected cleared cart, got %+v", lines)
	}
}
