package cart

import "github.com/shopspring/decimal"

// Tax and service charge are fixed register-wide rates.
var (
	TaxRate           = decimal.NewFromFloat(0.18)
	ServiceChargeRate = decimal.NewFromFloat(0.10)
)

// Totals is the derived view over the current line items. It is recomputed on
// every call and never persisted apart from the lines themselves.
type Totals struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	ServiceCharge     decimal.Decimal `json:"service_charge"`
	Total             decimal.Decimal `json:"total"`
	ItemCount         int             `json:"item_count"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
	ServiceChargeRate decimal.Decimal `json:"service_charge_rate"`
}

func computeTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		count += item.Quantity
	}
	tax := subtotal.Mul(TaxRate)
	service := subtotal.Mul(ServiceChargeRate)
	return Totals{
		Subtotal:          subtotal,
		Tax:               tax,
		ServiceCharge:     service,
		Total:             subtotal.Add(tax).Add(service),
		ItemCount:         count,
		TaxRate:           TaxRate,
		ServiceChargeRate: ServiceChargeRate,
	}
}
