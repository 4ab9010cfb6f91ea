package inventory

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("SAZONPOS_DB_DSN")
	if dsn == "" {
		t.Skip("SAZONPOS_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func TestRepositoryLowStockFilter(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	low := &models.InventoryItem{
		Name: "Limes", SKU: fmt.Sprintf("SKU-%s", uuid.NewString()),
		Unit: enums.InventoryUnitEach, QtyOnHand: 3, LowStockThreshold: 5,
	}
	stocked := &models.InventoryItem{
		Name: "Onions", SKU: fmt.Sprintf("SKU-%s", uuid.NewString()),
		Unit: enums.InventoryUnitKilo, QtyOnHand: 40, LowStockThreshold: 5,
	}
	for _, item := range []*models.InventoryItem{low, stocked} {
		if _, err := repo.Create(ctx, item); err != nil {
			t.Fatalf("create inventory item: %v", err)
		}
	}

	items, _, err := repo.List(ctx, listInventoryParams{LowStockOnly: true, Limit: 100})
	if err != nil {
		t.Fatalf("list low stock: %v", err)
	}
	for _, item := range items {
		if item.QtyOnHand > item.LowStockThreshold {
			t.Fatalf("item %s is not low on stock", item.SKU)
		}
	}

	found := false
	for _, item := range items {
		if item.ID == low.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the low item in the listing")
	}
}

func TestRepositoryAdjustmentTrail(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	item := &models.InventoryItem{
		Name: "Cheese", SKU: fmt.Sprintf("SKU-%s", uuid.NewString()),
		Unit: enums.InventoryUnitKilo, QtyOnHand: 10, LowStockThreshold: 2,
	}
	if _, err := repo.Create(ctx, item); err != nil {
		t.Fatalf("create inventory item: %v", err)
	}

	for _, delta := range []float64{-2, 5} {
		adjustment := &models.InventoryAdjustment{
			InventoryItemID: item.ID,
			Delta:           delta,
			Reason:          "count correction",
		}
		if err := repo.RecordAdjustment(ctx, adjustment); err != nil {
			t.Fatalf("record adjustment: %v", err)
		}
	}

	rows, err := repo.ListAdjustments(ctx, item.ID, 10)
	if err != nil {
		t.Fatalf("list adjustments: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 adjustments, got %d", len(rows))
	}
}
