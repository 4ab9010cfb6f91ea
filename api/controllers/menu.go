package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avaldezco/sazonpos-backend/api/responses"
	"github.com/avaldezco/sazonpos-backend/api/validators"
	"github.com/avaldezco/sazonpos-backend/internal/menu"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
)

type menuSizePayload struct {
	ID             string `json:"id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	SurchargeCents int64  `json:"surcharge_cents"`
}

type menuAddOnPayload struct {
	ID             string `json:"id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	SurchargeCents int64  `json:"surcharge_cents"`
}

type menuIngredientPayload struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id" validate:"required"`
	QtyPerUnit      float64   `json:"qty_per_unit" validate:"required,gt=0"`
}

type createMenuItemRequest struct {
	Name           string                  `json:"name" validate:"required"`
	Category       string                  `json:"category" validate:"required"`
	Description    *string                 `json:"description,omitempty"`
	BasePriceCents int64                   `json:"base_price_cents" validate:"required,gt=0"`
	Sizes          []menuSizePayload       `json:"sizes,omitempty" validate:"dive"`
	AddOns         []menuAddOnPayload      `json:"add_ons,omitempty" validate:"dive"`
	ImagePath      *string                 `json:"image_path,omitempty"`
	IsActive       *bool                   `json:"is_active,omitempty"`
	Ingredients    []menuIngredientPayload `json:"ingredients,omitempty" validate:"dive"`
}

type updateMenuItemRequest struct {
	Name           *string                  `json:"name,omitempty"`
	Category       *string                  `json:"category,omitempty"`
	Description    *string                  `json:"description,omitempty"`
	BasePriceCents *int64                   `json:"base_price_cents,omitempty"`
	Sizes          *[]menuSizePayload       `json:"sizes,omitempty"`
	AddOns         *[]menuAddOnPayload      `json:"add_ons,omitempty"`
	ImagePath      *string                  `json:"image_path,omitempty"`
	IsActive       *bool                    `json:"is_active,omitempty"`
	Ingredients    *[]menuIngredientPayload `json:"ingredients,omitempty"`
}

func toSizeInputs(payloads []menuSizePayload) []menu.SizeInput {
	sizes := make([]menu.SizeInput, len(payloads))
	for i, p := range payloads {
		sizes[i] = menu.SizeInput{ID: p.ID, Name: p.Name, SurchargeCents: p.SurchargeCents}
	}
	return sizes
}

func toAddOnInputs(payloads []menuAddOnPayload) []menu.AddOnInput {
	addOns := make([]menu.AddOnInput, len(payloads))
	for i, p := range payloads {
		addOns[i] = menu.AddOnInput{ID: p.ID, Name: p.Name, SurchargeCents: p.SurchargeCents}
	}
	return addOns
}

func toIngredientInputs(payloads []menuIngredientPayload) []menu.IngredientInput {
	ingredients := make([]menu.IngredientInput, len(payloads))
	for i, p := range payloads {
		ingredients[i] = menu.IngredientInput{InventoryItemID: p.InventoryItemID, QtyPerUnit: p.QtyPerUnit}
	}
	return ingredients
}

// MenuCreate adds a new item to the menu.
func MenuCreate(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createMenuItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := menu.CreateMenuItemInput{
			Name:           payload.Name,
			Category:       payload.Category,
			Description:    payload.Description,
			BasePriceCents: payload.BasePriceCents,
			Sizes:          toSizeInputs(payload.Sizes),
			AddOns:         toAddOnInputs(payload.AddOns),
			ImagePath:      payload.ImagePath,
			IsActive:       true,
			Ingredients:    toIngredientInputs(payload.Ingredients),
		}
		if payload.IsActive != nil {
			input.IsActive = *payload.IsActive
		}

		item, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// MenuUpdate mutates an existing menu item. Absent fields stay untouched.
func MenuUpdate(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid menu item id"))
			return
		}

		var payload updateMenuItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := menu.UpdateMenuItemInput{
			Name:           payload.Name,
			Category:       payload.Category,
			Description:    payload.Description,
			BasePriceCents: payload.BasePriceCents,
			ImagePath:      payload.ImagePath,
			IsActive:       payload.IsActive,
		}
		if payload.Sizes != nil {
			sizes := toSizeInputs(*payload.Sizes)
			input.Sizes = &sizes
		}
		if payload.AddOns != nil {
			addOns := toAddOnInputs(*payload.AddOns)
			input.AddOns = &addOns
		}
		if payload.Ingredients != nil {
			ingredients := toIngredientInputs(*payload.Ingredients)
			input.Ingredients = &ingredients
		}

		item, err := svc.Update(r.Context(), itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// MenuDelete removes a menu item.
func MenuDelete(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid menu item id"))
			return
		}

		if err := svc.Delete(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// MenuGet returns one menu item with its sizes, add-ons, and ingredients.
func MenuGet(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid menu item id"))
			return
		}

		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// MenuList returns a page of menu items for the ordering screens.
func MenuList(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), menu.ListMenuInput{
			Category:   r.URL.Query().Get("category"),
			ActiveOnly: r.URL.Query().Get("active_only") == "true",
			Limit:      limit,
			Cursor:     r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
