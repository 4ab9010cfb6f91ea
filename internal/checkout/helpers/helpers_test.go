package helpers

import (
	"testing"

	"github.com/avaldezco/sazonpos-backend/internal/cart"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestToCentsRounds(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"85.50", 8550},
		{"0", 0},
		{"0.005", 1},
		{"123.454", 12345},
		{"123.455", 12346},
	}
	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.amount)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.amount, err)
		}
		if got := ToCents(amount); got != tc.want {
			t.Fatalf("ToCents(%s) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestLoyaltyPoints(t *testing.T) {
	if got := LoyaltyPoints(17100); got != 171 {
		t.Fatalf("expected 171, got %d", got)
	}
	if got := LoyaltyPoints(99); got != 0 {
		t.Fatalf("sub-peso subtotals earn nothing, got %d", got)
	}
	if got := LoyaltyPoints(-500); got != 0 {
		t.Fatalf("negative subtotals earn nothing, got %d", got)
	}
}

func TestBuildLineItems(t *testing.T) {
	orderID := uuid.New()
	menuItemID := uuid.New()
	items := []cart.LineItem{
		{
			CartItemID: "line-1",
			ProductID:  menuItemID.String(),
			Name:       "Quesadilla",
			BasePrice:  decimal.NewFromFloat(60),
			Size: &cart.SizeSelection{
				ID: "lg", Name: "Grande", Surcharge: decimal.NewFromFloat(15),
			},
			AddOns: []cart.OptionSelection{
				{ID: "ch", Name: "Champiñones", Surcharge: decimal.NewFromFloat(10)},
				{ID: "qs", Name: "Queso extra", Surcharge: decimal.NewFromFloat(12)},
			},
			Note:       "  sin cebolla ",
			Quantity:   2,
			UnitPrice:  decimal.NewFromFloat(97),
			TotalPrice: decimal.NewFromFloat(194),
		},
		{
			CartItemID: "line-2",
			ProductID:  "off-menu-special",
			Name:       "Agua de Jamaica",
			BasePrice:  decimal.NewFromFloat(25),
			Quantity:   1,
			UnitPrice:  decimal.NewFromFloat(25),
			TotalPrice: decimal.NewFromFloat(25),
		},
	}

	rows := BuildLineItems(orderID, items)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.OrderID != orderID {
		t.Fatal("order id not carried over")
	}
	if first.MenuItemID == nil || *first.MenuItemID != menuItemID {
		t.Fatal("menu item reference lost")
	}
	if first.SizeName == nil || *first.SizeName != "Grande" {
		t.Fatalf("unexpected size %v", first.SizeName)
	}
	if first.AddOnNames == nil || *first.AddOnNames != "Champiñones, Queso extra" {
		t.Fatalf("unexpected add-ons %v", first.AddOnNames)
	}
	if first.Note == nil || *first.Note != "sin cebolla" {
		t.Fatalf("note should be trimmed, got %v", first.Note)
	}
	if first.BaseUnitPriceCents != 6000 || first.UnitPriceCents != 9700 || first.LineTotalCents != 19400 {
		t.Fatalf("unexpected pricing %d/%d/%d", first.BaseUnitPriceCents, first.UnitPriceCents, first.LineTotalCents)
	}

	second := rows[1]
	if second.MenuItemID != nil {
		t.Fatal("non-uuid product ids keep no menu reference")
	}
	if second.SizeName != nil || second.AddOnNames != nil || second.Note != nil {
		t.Fatal("optional fields should stay nil when absent")
	}
}
