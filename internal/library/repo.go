package library

import (
	"context"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes textbook persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a library repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new textbook row.
func (r *Repository) Create(ctx context.Context, textbook *models.Textbook) (*models.Textbook, error) {
	if err := r.db.WithContext(ctx).Create(textbook).Error; err != nil {
		return nil, err
	}
	return textbook, nil
}

// FindByID loads one textbook.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Textbook, error) {
	var textbook models.Textbook
	if err := r.db.WithContext(ctx).First(&textbook, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &textbook, nil
}

// Update saves an existing textbook row.
func (r *Repository) Update(ctx context.Context, textbook *models.Textbook) (*models.Textbook, error) {
	if err := r.db.WithContext(ctx).Save(textbook).Error; err != nil {
		return nil, err
	}
	return textbook, nil
}

// Delete removes the textbook row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Textbook{}, "id = ?", id).Error
}

type listLibraryParams struct {
	Subject    string
	GradeLevel string
	Limit      int
	Cursor     *pagination.Cursor
}

// List returns a page of textbooks ordered by creation time.
func (r *Repository) List(ctx context.Context, params listLibraryParams) ([]models.Textbook, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Textbook{})
	if params.Subject != "" {
		query = query.Where("subject = ?", params.Subject)
	}
	if params.GradeLevel != "" {
		query = query.Where("grade_level = ?", params.GradeLevel)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var textbooks []models.Textbook
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&textbooks).Error; err != nil {
		return nil, nil, err
	}

	if len(textbooks) > normalized {
		next := textbooks[normalized]
		textbooks = textbooks[:normalized]
		return textbooks, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return textbooks, nil, nil
}
