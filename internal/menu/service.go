package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avaldezco/sazonpos-backend/pkg/db"
	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
	"github.com/avaldezco/sazonpos-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes menu management and the listing the ordering screens read.
type Service interface {
	Create(ctx context.Context, input CreateMenuItemInput) (*MenuItemDTO, error)
	Update(ctx context.Context, itemID uuid.UUID, input UpdateMenuItemInput) (*MenuItemDTO, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
	Get(ctx context.Context, itemID uuid.UUID) (*MenuItemDTO, error)
	List(ctx context.Context, input ListMenuInput) (*MenuListResult, error)
}

// CreateMenuItemInput holds the validated payload to create a menu item.
type CreateMenuItemInput struct {
	Name           string
	Category       string
	Description    *string
	BasePriceCents int64
	Sizes          []SizeInput
	AddOns         []AddOnInput
	ImagePath      *string
	IsActive       bool
	Ingredients    []IngredientInput
}

// SizeInput defines one selectable size.
type SizeInput struct {
	ID             string
	Name           string
	SurchargeCents int64
}

// AddOnInput defines one selectable add-on.
type AddOnInput struct {
	ID             string
	Name           string
	SurchargeCents int64
}

// IngredientInput maps the item to the stock one unit consumes.
type IngredientInput struct {
	InventoryItemID uuid.UUID
	QtyPerUnit      float64
}

// UpdateMenuItemInput holds optional mutation values for a menu item.
type UpdateMenuItemInput struct {
	Name           *string
	Category       *string
	Description    *string
	BasePriceCents *int64
	Sizes          *[]SizeInput
	AddOns         *[]AddOnInput
	ImagePath      *string
	IsActive       *bool
	Ingredients    *[]IngredientInput
}

// ListMenuInput configures the menu listing.
type ListMenuInput struct {
	Category   string
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// MenuListResult wraps a page of menu items and the next-page cursor.
type MenuListResult struct {
	Items  []MenuItemDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a menu service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) Create(ctx context.Context, input CreateMenuItemInput) (*MenuItemDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	item := &models.MenuItem{
		Name:           strings.TrimSpace(input.Name),
		Category:       strings.TrimSpace(input.Category),
		Description:    input.Description,
		BasePriceCents: input.BasePriceCents,
		Sizes:          sizesToColumn(input.Sizes),
		AddOns:         addOnsToColumn(input.AddOns),
		ImagePath:      input.ImagePath,
		IsActive:       input.IsActive,
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, item); err != nil {
			return err
		}
		return repo.ReplaceIngredients(ctx, item.ID, ingredientRows(item.ID, input.Ingredients))
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu item")
	}

	return s.Get(ctx, item.ID)
}

func (s *service) Update(ctx context.Context, itemID uuid.UUID, input UpdateMenuItemInput) (*MenuItemDTO, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	if err := validateUpdateInput(input); err != nil {
		return nil, err
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		applyUpdateToItem(item, input)
		item.Ingredients = nil
		if _, err := repo.Update(ctx, item); err != nil {
			return err
		}
		if input.Ingredients != nil {
			return repo.ReplaceIngredients(ctx, item.ID, ingredientRows(item.ID, *input.Ingredients))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu item")
	}

	return s.Get(ctx, itemID)
}

func (s *service) Delete(ctx context.Context, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	if _, err := s.repo.FindByID(ctx, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, itemID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete menu item")
	}
	return nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*MenuItemDTO, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	return NewMenuItemDTO(item), nil
}

func (s *service) List(ctx context.Context, input ListMenuInput) (*MenuListResult, error) {
	params := listMenuParams{
		Category:   strings.TrimSpace(input.Category),
		ActiveOnly: input.ActiveOnly,
		Limit:      input.Limit,
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	items, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}

	result := &MenuListResult{Items: make([]MenuItemDTO, len(items))}
	for i := range items {
		result.Items[i] = *NewMenuItemDTO(&items[i])
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func validateCreateInput(input CreateMenuItemInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if input.BasePriceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
	}
	if err := validateSizes(input.Sizes); err != nil {
		return err
	}
	if err := validateAddOns(input.AddOns); err != nil {
		return err
	}
	return validateIngredients(input.Ingredients)
}

func validateUpdateInput(input UpdateMenuItemInput) error {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
	}
	if input.BasePriceCents != nil && *input.BasePriceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
	}
	if input.Sizes != nil {
		if err := validateSizes(*input.Sizes); err != nil {
			return err
		}
	}
	if input.AddOns != nil {
		if err := validateAddOns(*input.AddOns); err != nil {
			return err
		}
	}
	if input.Ingredients != nil {
		return validateIngredients(*input.Ingredients)
	}
	return nil
}

func validateSizes(sizes []SizeInput) error {
	seen := make(map[string]struct{}, len(sizes))
	for _, size := range sizes {
		if strings.TrimSpace(size.ID) == "" || strings.TrimSpace(size.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "size id and name required")
		}
		if size.SurchargeCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "size surcharge cannot be negative")
		}
		if _, dup := seen[size.ID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate size id %q", size.ID))
		}
		seen[size.ID] = struct{}{}
	}
	return nil
}

func validateAddOns(addOns []AddOnInput) error {
	seen := make(map[string]struct{}, len(addOns))
	for _, addOn := range addOns {
		if strings.TrimSpace(addOn.ID) == "" || strings.TrimSpace(addOn.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "add-on id and name required")
		}
		if addOn.SurchargeCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "add-on surcharge cannot be negative")
		}
		if _, dup := seen[addOn.ID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate add-on id %q", addOn.ID))
		}
		seen[addOn.ID] = struct{}{}
	}
	return nil
}

func validateIngredients(ingredients []IngredientInput) error {
	seen := make(map[uuid.UUID]struct{}, len(ingredients))
	for _, ingredient := range ingredients {
		if ingredient.InventoryItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "ingredient inventory item id required")
		}
		if ingredient.QtyPerUnit <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "ingredient qty per unit must be positive")
		}
		if _, dup := seen[ingredient.InventoryItemID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate ingredient mapping")
		}
		seen[ingredient.InventoryItemID] = struct{}{}
	}
	return nil
}

func applyUpdateToItem(item *models.MenuItem, input UpdateMenuItemInput) {
	if input.Name != nil {
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		item.Category = strings.TrimSpace(*input.Category)
	}
	if input.Description != nil {
		item.Description = input.Description
	}
	if input.BasePriceCents != nil {
		item.BasePriceCents = *input.BasePriceCents
	}
	if input.Sizes != nil {
		item.Sizes = sizesToColumn(*input.Sizes)
	}
	if input.AddOns != nil {
		item.AddOns = addOnsToColumn(*input.AddOns)
	}
	if input.ImagePath != nil {
		item.ImagePath = input.ImagePath
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}
}

func sizesToColumn(sizes []SizeInput) types.SizeOptions {
	column := make(types.SizeOptions, len(sizes))
	for i, size := range sizes {
		column[i] = types.SizeOption{
			ID:             size.ID,
			Name:           strings.TrimSpace(size.Name),
			SurchargeCents: size.SurchargeCents,
		}
	}
	return column
}

func addOnsToColumn(addOns []AddOnInput) types.AddOnOptions {
	column := make(types.AddOnOptions, len(addOns))
	for i, addOn := range addOns {
		column[i] = types.AddOnOption{
			ID:             addOn.ID,
			Name:           strings.TrimSpace(addOn.Name),
			SurchargeCents: addOn.SurchargeCents,
		}
	}
	return column
}

func ingredientRows(menuItemID uuid.UUID, ingredients []IngredientInput) []models.MenuItemIngredient {
	rows := make([]models.MenuItemIngredient, len(ingredients))
	for i, ingredient := range ingredients {
		rows[i] = models.MenuItemIngredient{
			MenuItemID:      menuItemID,
			InventoryItemID: ingredient.InventoryItemID,
			QtyPerUnit:      ingredient.QtyPerUnit,
		}
	}
	return rows
}
