package helpers

import (
	"strings"

	"github.com/avaldezco/sazonpos-backend/internal/cart"
	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/google/uuid"
)

// BuildLineItems freezes the cart lines into order line item rows. Prices are
// converted to cents line by line so the stored rows match what the register
// displayed, and the menu item reference is kept only when the cart carried a
// parseable id.
func BuildLineItems(orderID uuid.UUID, items []cart.LineItem) []models.OrderLineItem {
	rows := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		row := models.OrderLineItem{
			OrderID:            orderID,
			Name:               item.Name,
			Qty:                item.Quantity,
			BaseUnitPriceCents: ToCents(item.BasePrice),
			UnitPriceCents:     ToCents(item.UnitPrice),
			LineTotalCents:     ToCents(item.TotalPrice),
		}
		if menuItemID, err := uuid.Parse(item.ProductID); err == nil {
			id := menuItemID
			row.MenuItemID = &id
		}
		if item.Size != nil {
			name := item.Size.Name
			row.SizeName = &name
		}
		if names := joinAddOnNames(item.AddOns); names != "" {
			row.AddOnNames = &names
		}
		if note := strings.TrimSpace(item.Note); note != "" {
			row.Note = &note
		}
		rows = append(rows, row)
	}
	return rows
}

func joinAddOnNames(addOns []cart.OptionSelection) string {
	if len(addOns) == 0 {
		return ""
	}
	names := make([]string, 0, len(addOns))
	for _, opt := range addOns {
		if trimmed := strings.TrimSpace(opt.Name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return strings.Join(names, ", ")
}
