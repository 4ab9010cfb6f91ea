package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SizeOption is one selectable size for a menu item, with the price it adds
// on top of the base price.
type SizeOption struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SurchargeCents int64  `json:"surcharge_cents"`
}

// AddOnOption is one selectable add-on for a menu item.
type AddOnOption struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SurchargeCents int64  `json:"surcharge_cents"`
}

// SizeOptions is stored as a JSONB column on menu items.
type SizeOptions []SizeOption

// Value implements driver.Valuer.
func (s SizeOptions) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *SizeOptions) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// AddOnOptions is stored as a JSONB column on menu items.
type AddOnOptions []AddOnOption

// Value implements driver.Valuer.
func (a AddOnOptions) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AddOnOptions) Scan(value interface{}) error {
	return scanJSON(value, a)
}

func scanJSON(value interface{}, dest any) error {
	if value == nil {
		return nil
	}
	switch raw := value.(type) {
	case []byte:
		return json.Unmarshal(raw, dest)
	case string:
		return json.Unmarshal([]byte(raw), dest)
	default:
		return fmt.Errorf("unsupported jsonb source %T", value)
	}
}
