package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem freezes one cart line as it was priced at submission.
type OrderLineItem struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID          *uuid.UUID `gorm:"column:menu_item_id;type:uuid"`
	Name                string     `gorm:"column:name;not null"`
	SizeName            *string    `gorm:"column:size_name"`
	AddOnNames          *string    `gorm:"column:add_on_names"`
	Note                *string    `gorm:"column:note"`
	Qty                 int        `gorm:"column:qty;not null"`
	BaseUnitPriceCents  int64      `gorm:"column:base_unit_price_cents;not null"`
	UnitPriceCents      int64      `gorm:"column:unit_price_cents;not null"`
	LineTotalCents      int64      `gorm:"column:line_total_cents;not null"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default GORM pluralization.
func (OrderLineItem) TableName() string { return "order_line_items" }
