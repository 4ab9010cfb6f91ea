package enums

import "fmt"

// InventoryUnit is the unit of measure an ingredient is counted in.
type InventoryUnit string

const (
	InventoryUnitEach  InventoryUnit = "each"
	InventoryUnitGram  InventoryUnit = "gram"
	InventoryUnitKilo  InventoryUnit = "kilogram"
	InventoryUnitLiter InventoryUnit = "liter"
)

var validInventoryUnits = []InventoryUnit{
	InventoryUnitEach,
	InventoryUnitGram,
	InventoryUnitKilo,
	InventoryUnitLiter,
}

// IsValid reports whether the value is a known InventoryUnit.
func (u InventoryUnit) IsValid() bool {
	for _, candidate := range validInventoryUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseInventoryUnit converts raw input into an InventoryUnit.
func ParseInventoryUnit(value string) (InventoryUnit, error) {
	for _, candidate := range validInventoryUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory unit %q", value)
}
