package menu

import (
	"time"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/google/uuid"
)

// MenuItemDTO is the menu item payload returned to clients.
type MenuItemDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Description    *string         `json:"description,omitempty"`
	BasePriceCents int64           `json:"base_price_cents"`
	Sizes          []SizeDTO       `json:"sizes"`
	AddOns         []AddOnDTO      `json:"add_ons"`
	ImagePath      *string         `json:"image_path,omitempty"`
	IsActive       bool            `json:"is_active"`
	Ingredients    []IngredientDTO `json:"ingredients,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SizeDTO is one selectable size with its surcharge.
type SizeDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SurchargeCents int64  `json:"surcharge_cents"`
}

// AddOnDTO is one selectable add-on with its surcharge.
type AddOnDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SurchargeCents int64  `json:"surcharge_cents"`
}

// IngredientDTO maps the item to the stock one unit consumes.
type IngredientDTO struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	QtyPerUnit      float64   `json:"qty_per_unit"`
}

// NewMenuItemDTO builds a DTO from the persisted model.
func NewMenuItemDTO(item *models.MenuItem) *MenuItemDTO {
	dto := &MenuItemDTO{
		ID:             item.ID,
		Name:           item.Name,
		Category:       item.Category,
		Description:    item.Description,
		BasePriceCents: item.BasePriceCents,
		Sizes:          make([]SizeDTO, len(item.Sizes)),
		AddOns:         make([]AddOnDTO, len(item.AddOns)),
		ImagePath:      item.ImagePath,
		IsActive:       item.IsActive,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
	for i, size := range item.Sizes {
		dto.Sizes[i] = SizeDTO{ID: size.ID, Name: size.Name, SurchargeCents: size.SurchargeCents}
	}
	for i, addOn := range item.AddOns {
		dto.AddOns[i] = AddOnDTO{ID: addOn.ID, Name: addOn.Name, SurchargeCents: addOn.SurchargeCents}
	}
	if len(item.Ingredients) > 0 {
		dto.Ingredients = make([]IngredientDTO, len(item.Ingredients))
		for i, ingredient := range item.Ingredients {
			dto.Ingredients[i] = IngredientDTO{
				InventoryItemID: ingredient.InventoryItemID,
				QtyPerUnit:      ingredient.QtyPerUnit,
			}
		}
	}
	return dto
}
