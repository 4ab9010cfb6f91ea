package models

import (
	"time"

	"github.com/google/uuid"
)

// Textbook is one entry in the tutoring library, with its PDF stored in GCS.
type Textbook struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Subject     string    `gorm:"column:subject;not null;index"`
	GradeLevel  string    `gorm:"column:grade_level;not null"`
	Description *string   `gorm:"column:description"`
	ObjectPath  *string   `gorm:"column:object_path"`
	UploadedBy  uuid.UUID `gorm:"column:uploaded_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default GORM pluralization.
func (Textbook) TableName() string { return "textbooks" }
