package menu

import (
	"context"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wires together menu item persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the menu item with its ingredient mappings.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).
		Preload("Ingredients").
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new menu item row.
func (r *Repository) Create(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Update saves an existing menu item row.
func (r *Repository) Update(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the menu item and its ingredient mappings.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("menu_item_id = ?", id).Delete(&models.MenuItemIngredient{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.MenuItem{}, "id = ?", id).Error
}

// ReplaceIngredients replaces all ingredient mappings for the item.
func (r *Repository) ReplaceIngredients(ctx context.Context, menuItemID uuid.UUID, mappings []models.MenuItemIngredient) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("menu_item_id = ?", menuItemID).Delete(&models.MenuItemIngredient{}).Error; err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}
	return tx.Create(&mappings).Error
}

// ListIngredients loads the ingredient mappings for a set of menu items.
func (r *Repository) ListIngredients(ctx context.Context, menuItemIDs []uuid.UUID) ([]models.MenuItemIngredient, error) {
	if len(menuItemIDs) == 0 {
		return nil, nil
	}
	var mappings []models.MenuItemIngredient
	if err := r.db.WithContext(ctx).
		Where("menu_item_id IN ?", menuItemIDs).
		Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

type listMenuParams struct {
	Category   string
	ActiveOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

// List returns a page of menu items ordered by creation time.
func (r *Repository) List(ctx context.Context, params listMenuParams) ([]models.MenuItem, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.MenuItem{})
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.ActiveOnly {
		query = query.Where("is_active = true")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var items []models.MenuItem
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, nil, err
	}

	if len(items) > normalized {
		next := items[normalized]
		items = items[:normalized]
		return items, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return items, nil, nil
}
