package payloads

import (
	"time"

	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a checkout that produced a new kitchen ticket.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	TerminalID    string              `json:"terminal_id"`
	CashierUserID uuid.UUID           `json:"cashier_user_id"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	TableLabel    *string             `json:"table_label,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	SubtotalCents int64               `json:"subtotal_cents"`
	TotalCents    int64               `json:"total_cents"`
	ItemCount     int                 `json:"item_count"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	TerminalID  string            `json:"terminal_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedBy   *uuid.UUID        `json:"changed_by,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderExpiredEvent describes an open order the scheduler gave up on.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	TerminalID  string    `json:"terminal_id"`
	ExpiredAt   time.Time `json:"expired_at"`
	AgeHours    int       `json:"age_hours"`
}

// LowStockEvent warns that an ingredient dropped to or below its threshold.
type LowStockEvent struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Name            string    `json:"name"`
	SKU             string    `json:"sku"`
	QtyOnHand       float64   `json:"qty_on_hand"`
	Threshold       float64   `json:"threshold"`
	ObservedAt      time.Time `json:"observed_at"`
}
