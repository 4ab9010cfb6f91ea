package orders

import (
	"time"

	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
)

// ListOrdersParams describe the inputs supported by the orders list.
type ListOrdersParams struct {
	Status     *enums.OrderStatus
	TerminalID string
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Cursor     *pagination.Cursor
}

// DailySummary aggregates completed sales for the report screens.
type DailySummary struct {
	Orders       int64 `json:"orders"`
	RevenueCents int64 `json:"revenue_cents"`
	ItemsSold    int64 `json:"items_sold"`
}
