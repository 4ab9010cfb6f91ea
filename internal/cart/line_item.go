package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// SizeSelection is the size a cashier picked for one line, with the price it
// adds on top of the item's base price.
type SizeSelection struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// OptionSelection is one add-on attached to a line.
type OptionSelection struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// LineItem is one configured product in the cart. CartItemID is unique within
// the cart even when the same configuration is added twice; adds never merge.
type LineItem struct {
	CartItemID string            `json:"cart_item_id"`
	ProductID  string            `json:"product_id"`
	Name       string            `json:"name"`
	BasePrice  decimal.Decimal   `json:"base_price"`
	Size       *SizeSelection    `json:"size,omitempty"`
	AddOns     []OptionSelection `json:"add_ons,omitempty"`
	Note       string            `json:"note,omitempty"`
	Quantity   int               `json:"quantity"`
	// UnitPrice is the customized per-unit price (base plus size and add-on
	// surcharges), fixed at creation so quantity updates never have to
	// back-divide a line total.
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	AddedAt    time.Time       `json:"added_at"`
}

// unitPriceFor computes base plus every selected surcharge.
func unitPriceFor(base decimal.Decimal, size *SizeSelection, addOns []OptionSelection) decimal.Decimal {
	price := base
	if size != nil {
		price = price.Add(size.Surcharge)
	}
	for _, opt := range addOns {
		price = price.Add(opt.Surcharge)
	}
	return price
}

func cloneLineItem(item LineItem) LineItem {
	out := item
	if item.Size != nil {
		size := *item.Size
		out.Size = &size
	}
	if item.AddOns != nil {
		out.AddOns = make([]OptionSelection, len(item.AddOns))
		copy(out.AddOns, item.AddOns)
	}
	return out
}

func cloneLineItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = cloneLineItem(item)
	}
	return out
}
