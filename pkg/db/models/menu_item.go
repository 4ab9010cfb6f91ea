package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avaldezco/sazonpos-backend/pkg/types"
)

// MenuItem is one orderable product with its customization choices.
type MenuItem struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string             `gorm:"column:name;not null"`
	Category       string             `gorm:"column:category;not null;index"`
	Description    *string            `gorm:"column:description"`
	BasePriceCents int64              `gorm:"column:base_price_cents;not null"`
	Sizes          types.SizeOptions  `gorm:"column:sizes;type:jsonb"`
	AddOns         types.AddOnOptions `gorm:"column:add_ons;type:jsonb"`
	ImagePath      *string            `gorm:"column:image_path"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Ingredients []MenuItemIngredient `gorm:"foreignKey:MenuItemID"`
}

// TableName overrides the default GORM pluralization.
func (MenuItem) TableName() string { return "menu_items" }

// MenuItemIngredient maps a menu item to the stock it consumes per unit sold.
type MenuItemIngredient struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MenuItemID      uuid.UUID `gorm:"column:menu_item_id;type:uuid;not null;index"`
	InventoryItemID uuid.UUID `gorm:"column:inventory_item_id;type:uuid;not null"`
	QtyPerUnit      float64   `gorm:"column:qty_per_unit;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default GORM pluralization.
func (MenuItemIngredient) TableName() string { return "menu_item_ingredients" }
