package reservation

import (
	"context"
	"fmt"
	"sort"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRequest asks for a quantity of one ingredient to be consumed.
type StockRequest struct {
	InventoryItemID uuid.UUID
	Qty             float64
}

// StockResult reports the ingredient's state after the deduction. CrossedLow
// is set only when this deduction moved the item from above the threshold to
// at or below it, so the caller raises at most one alert per crossing.
type StockResult struct {
	InventoryItemID uuid.UUID
	Name            string
	SKU             string
	QtyOnHand       float64
	Threshold       float64
	CrossedLow      bool
}

// DeductStock consumes ingredient quantities inside the caller's transaction.
// Requests for the same item are merged, rows are locked in id order to keep
// concurrent checkouts from deadlocking, and every deduction leaves an
// adjustment row tying the change to the order. Stock is allowed to go
// negative: the sale already happened at the counter, so the count follows
// reality and the low stock alert flags the shortfall.
func DeductStock(ctx context.Context, tx *gorm.DB, orderNumber string, actorUserID uuid.UUID, requests []StockRequest) ([]StockResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	merged := mergeRequests(requests)
	if len(merged) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var items []models.InventoryItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory rows")
	}
	if len(items) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient no longer exists")
	}

	results := make([]StockResult, 0, len(items))
	reason := fmt.Sprintf("order %s", orderNumber)
	actor := actorUserID
	for i := range items {
		item := &items[i]
		qty := merged[item.ID]
		wasLow := item.QtyOnHand <= item.LowStockThreshold
		next := item.QtyOnHand - qty

		err := tx.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Where("id = ?", item.ID).
			UpdateColumn("qty_on_hand", next).Error
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct stock")
		}

		adjustment := models.InventoryAdjustment{
			InventoryItemID: item.ID,
			Delta:           -qty,
			Reason:          reason,
			ActorUserID:     &actor,
		}
		if err := tx.WithContext(ctx).Create(&adjustment).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record adjustment")
		}

		results = append(results, StockResult{
			InventoryItemID: item.ID,
			Name:            item.Name,
			SKU:             item.SKU,
			QtyOnHand:       next,
			Threshold:       item.LowStockThreshold,
			CrossedLow:      !wasLow && next <= item.LowStockThreshold,
		})
	}
	return results, nil
}

func mergeRequests(requests []StockRequest) map[uuid.UUID]float64 {
	merged := make(map[uuid.UUID]float64, len(requests))
	for _, req := range requests {
		if req.InventoryItemID == uuid.Nil || req.Qty <= 0 {
			continue
		}
		merged[req.InventoryItemID] += req.Qty
	}
	return merged
}
