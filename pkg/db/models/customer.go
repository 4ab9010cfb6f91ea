package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a diner tracked for loyalty and order history.
type Customer struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FullName      string    `gorm:"column:full_name;not null"`
	Phone         *string   `gorm:"column:phone;uniqueIndex"`
	Email         *string   `gorm:"column:email"`
	LoyaltyPoints int64     `gorm:"column:loyalty_points;not null;default:0"`
	Notes         *string   `gorm:"column:notes"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default GORM pluralization.
func (Customer) TableName() string { return "customers" }
