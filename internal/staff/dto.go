package staff

import (
	"time"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/google/uuid"
)

// StaffDTO is the transport shape that omits the password hash.
type StaffDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FromModel converts a persisted account into its transport shape.
func FromModel(user *models.User) *StaffDTO {
	if user == nil {
		return nil
	}
	return &StaffDTO{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role.String(),
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
