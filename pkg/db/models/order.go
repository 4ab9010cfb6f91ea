package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avaldezco/sazonpos-backend/pkg/enums"
)

// Order is the point-in-time snapshot built from a cart at checkout.
// Cart state itself never reaches the database; only submitted orders do.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string              `gorm:"column:order_number;not null;uniqueIndex"`
	TerminalID         string              `gorm:"column:terminal_id;not null;index"`
	CashierUserID      uuid.UUID           `gorm:"column:cashier_user_id;type:uuid;not null"`
	CustomerID         *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	TableLabel         *string             `gorm:"column:table_label"`
	Status             enums.OrderStatus   `gorm:"column:status;not null;default:'open';index"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;not null;default:'unpaid'"`
	PaymentReference   *string             `gorm:"column:payment_reference"`
	SubtotalCents      int64               `gorm:"column:subtotal_cents;not null"`
	TaxCents           int64               `gorm:"column:tax_cents;not null"`
	ServiceChargeCents int64               `gorm:"column:service_charge_cents;not null"`
	TotalCents         int64               `gorm:"column:total_cents;not null"`
	ItemCount          int                 `gorm:"column:item_count;not null"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID"`
}

// TableName overrides the default GORM pluralization.
func (Order) TableName() string { return "orders" }
