package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reloved-shop/reloved-backend/pkg/db/models"
	"github.com/reloved-shop/reloved-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderLineItem{}))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, ownerID string) *models.Order {
	t.Helper()
	owner := ownerID
	order := &models.Order{
		ID:         uuid.New(),
		OwnerID:    &owner,
		Status:     enums.OrderStatusPending,
		TotalCents: 3000,
	}
	require.NoError(t, db.Omit("Items").Create(order).Error)
	require.NoError(t, db.Create(&[]models.OrderLineItem{
		{ID: uuid.New(), OrderID: order.ID, ProductID: uuid.New(), Quantity: 2, UnitPriceCents: 1000},
		{ID: uuid.New(), OrderID: order.ID, ProductID: uuid.New(), VariantKey: "M", Quantity: 1, UnitPriceCents: 1000},
	}).Error)
	return order
}

func TestRepositoryCreateAndFind(t *testing.T) {
	t.Parallel()
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := "user:u-1"
	order := &models.Order{
		ID:         uuid.New(),
		OwnerID:    &owner,
		Status:     enums.OrderStatusPending,
		TotalCents: 500,
	}
	_, err := repo.Create(ctx, order)
	require.NoError(t, err)
	require.NoError(t, repo.CreateLineItems(ctx, []models.OrderLineItem{
		{ID: uuid.New(), OrderID: order.ID, ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 500},
	}))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, found.Status)
	assert.Len(t, found.Items, 1)
	require.NotNil(t, found.OwnerID)
	assert.Equal(t, owner, *found.OwnerID)
}

func TestRepositoryListByOwnerScopes(t *testing.T) {
	t.Parallel()
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedOrder(t, db, "user:u-1")
	seedOrder(t, db, "user:u-1")
	seedOrder(t, db, "user:u-2")

	rows, err := repo.ListByOwner(ctx, "user:u-1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "user:u-1", *row.OwnerID)
		assert.NotEmpty(t, row.Items)
	}
}

func TestRepositoryUpdateStatus(t *testing.T) {
	t.Parallel()
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "user:u-3")
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, found.Status)
}
