package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avaldezco/sazonpos-backend/pkg/config"
	"github.com/avaldezco/sazonpos-backend/pkg/db"
	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
	"github.com/avaldezco/sazonpos-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const tempPasswordLength = 16

// Service exposes staff account management.
type Service interface {
	Invite(ctx context.Context, input InviteInput) (*InviteResult, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Get(ctx context.Context, userID uuid.UUID) (*StaffDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*StaffDTO, error)
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

// InviteInput holds the payload to create a staff account.
type InviteInput struct {
	Email    string
	FullName string
	Role     enums.MemberRole
}

// InviteResult returns the new account and its one-time temporary password.
type InviteResult struct {
	Staff        *StaffDTO `json:"staff"`
	TempPassword string    `json:"temp_password"`
}

// ListInput configures the staff listing.
type ListInput struct {
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// ListResult wraps a page of accounts and the next-page cursor.
type ListResult struct {
	Items  []StaffDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

// UpdateInput holds optional mutation values for an account.
type UpdateInput struct {
	FullName *string
	Role     *enums.MemberRole
	IsActive *bool
}

type service struct {
	repo        *Repository
	passwordCfg config.PasswordConfig
}

// NewService constructs a staff service instance.
func NewService(repo *Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *service) Invite(ctx context.Context, input InviteInput) (*InviteResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		IsActive:     true,
	}
	if _, err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "ux_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create staff account")
	}

	return &InviteResult{Staff: FromModel(user), TempPassword: tempPassword}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	params := listStaffParams{
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

	users, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list staff")
	}

	result := &ListResult{Items: make([]StaffDTO, len(users))}
	for i := range users {
		result.Items[i] = *FromModel(&users[i])
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*StaffDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff account")
	}
	return FromModel(user), nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*StaffDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.FullName != nil && strings.TrimSpace(*input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff account")
	}

	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if _, err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update staff account")
	}
	return FromModel(user), nil
}

func (s *service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, userID, UpdateInput{IsActive: &inactive})
	return err
}
