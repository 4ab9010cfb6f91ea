package reservation

import (
	"context"
	"testing"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}, &models.InventoryAdjustment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedItem(t *testing.T, db *gorm.DB, name string, qty, threshold float64) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:                uuid.New(),
		Name:              name,
		SKU:               "SKU-" + uuid.NewString()[:8],
		QtyOnHand:         qty,
		LowStockThreshold: threshold,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return item
}

func TestDeductStockMergesAndRecordsAdjustments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tortillas := seedItem(t, db, "Tortillas", 100, 20)
	actor := uuid.New()

	var results []StockResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		results, txErr = DeductStock(ctx, tx, "SZ-000042", actor, []StockRequest{
			{InventoryItemID: tortillas.ID, Qty: 3},
			{InventoryItemID: tortillas.ID, Qty: 2},
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected merged result, got %d", len(results))
	}
	if results[0].QtyOnHand != 95 {
		t.Fatalf("expected 95 on hand, got %v", results[0].QtyOnHand)
	}
	if results[0].CrossedLow {
		t.Fatal("should not have crossed low threshold")
	}

	var adjustments []models.InventoryAdjustment
	if err := db.Where("inventory_item_id = ?", tortillas.ID).Find(&adjustments).Error; err != nil {
		t.Fatalf("load adjustments: %v", err)
	}
	if len(adjustments) != 1 {
		t.Fatalf("expected one adjustment row, got %d", len(adjustments))
	}
	if adjustments[0].Delta != -5 {
		t.Fatalf("expected delta -5, got %v", adjustments[0].Delta)
	}
	if adjustments[0].Reason != "order SZ-000042" {
		t.Fatalf("unexpected reason %q", adjustments[0].Reason)
	}
}

func TestDeductStockFlagsThresholdCrossing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cheese := seedItem(t, db, "Queso Oaxaca", 6, 5)
	beans := seedItem(t, db, "Frijoles", 3, 5)

	var results []StockResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		results, txErr = DeductStock(ctx, tx, "SZ-000043", uuid.New(), []StockRequest{
			{InventoryItemID: cheese.ID, Qty: 2},
			{InventoryItemID: beans.ID, Qty: 1},
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}

	byID := make(map[uuid.UUID]StockResult, len(results))
	for _, res := range results {
		byID[res.InventoryItemID] = res
	}
	if !byID[cheese.ID].CrossedLow {
		t.Fatal("cheese dropped to threshold and should alert")
	}
	if byID[beans.ID].CrossedLow {
		t.Fatal("beans were already low, no new alert expected")
	}
}

func TestDeductStockAllowsNegative(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	limes := seedItem(t, db, "Limones", 1, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		results, txErr := DeductStock(ctx, tx, "SZ-000044", uuid.New(), []StockRequest{
			{InventoryItemID: limes.ID, Qty: 4},
		})
		if txErr != nil {
			return txErr
		}
		if results[0].QtyOnHand != -3 {
			t.Fatalf("expected -3 on hand, got %v", results[0].QtyOnHand)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
}

func TestDeductStockMissingIngredient(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := DeductStock(ctx, tx, "SZ-000045", uuid.New(), []StockRequest{
			{InventoryItemID: uuid.New(), Qty: 1},
		})
		return txErr
	})
	if err == nil {
		t.Fatal("expected error for unknown ingredient")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeductStockSkipsEmptyRequests(t *testing.T) {
	db := newTestDB(t)
	results, err := DeductStock(context.Background(), db, "SZ-000046", uuid.New(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}
