package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avaldezco/sazonpos-backend/pkg/enums"
)

// InventoryItem is an ingredient or supply counted in the stockroom.
type InventoryItem struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string              `gorm:"column:name;not null"`
	SKU               string              `gorm:"column:sku;not null;uniqueIndex"`
	Unit              enums.InventoryUnit `gorm:"column:unit;not null;default:'each'"`
	QtyOnHand         float64             `gorm:"column:qty_on_hand;not null;default:0"`
	LowStockThreshold float64             `gorm:"column:low_stock_threshold;not null;default:0"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default GORM pluralization.
func (InventoryItem) TableName() string { return "inventory_items" }

// InventoryAdjustment records every manual or checkout-driven stock change.
type InventoryAdjustment struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InventoryItemID uuid.UUID  `gorm:"column:inventory_item_id;type:uuid;not null;index"`
	Delta           float64    `gorm:"column:delta;not null"`
	Reason          string     `gorm:"column:reason;not null"`
	ActorUserID     *uuid.UUID `gorm:"column:actor_user_id;type:uuid"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default GORM pluralization.
func (InventoryAdjustment) TableName() string { return "inventory_adjustments" }
