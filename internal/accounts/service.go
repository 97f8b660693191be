package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dbelyakov/realvista/internal/models"
	"github.com/dbelyakov/realvista/pkg/crypto"
	apperrors "github.com/dbelyakov/realvista/pkg/errors"
)

// CreateAdminInput describes the fields accepted when creating an admin.
type CreateAdminInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateAdminInput enumerates mutable admin attributes. The password hash is
// recomputed only when a new plaintext is supplied.
type UpdateAdminInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

// Service manages the admin account lifecycle: creation, profile updates,
// deletion, and manual unlock.
type Service struct {
	repo *Repository
}

// NewService constructs an account Service.
func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("accounts: repository is required")
	}
	return &Service{repo: repo}, nil
}

// Create provisions a new admin with a bcrypt password hash. The plaintext is
// accepted exactly once, here.
func (s *Service) Create(ctx context.Context, input CreateAdminInput) (*models.Admin, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	taken, err := s.repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.NewBadRequest("email is already registered")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}

	admin := &models.Admin{
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
	}

	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, err
	}

	admin.PasswordHash = ""
	return admin, nil
}

// GetByID returns the admin's public view.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of admins and the overall count.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]models.Admin, int64, error) {
	return s.repo.List(ctx, page, pageSize)
}

// Update applies partial changes to an admin record.
func (s *Service) Update(ctx context.Context, id string, input UpdateAdminInput) (*models.Admin, error) {
	updates := map[string]any{}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, apperrors.NewBadRequest("email must not be empty")
		}

		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(current.Email, email) {
			taken, err := s.repo.EmailTaken(ctx, email)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperrors.NewBadRequest("email is already registered")
			}
		}
		updates["email"] = email
	}

	if input.Password != nil {
		if strings.TrimSpace(*input.Password) == "" {
			return nil, apperrors.NewBadRequest("password must not be empty")
		}
		hashed, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("accounts: hash password: %w", err)
		}
		updates["password_hash"] = hashed
	}

	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}

	if len(updates) == 0 {
		return s.repo.GetByID(ctx, id)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// Delete removes an admin. Deleting an unknown id reports ErrNotFound, never
// a silent success.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Unlock clears lockout state unconditionally. Calling it on an unlocked
// account is a no-op.
func (s *Service) Unlock(ctx context.Context, id string) (*models.Admin, error) {
	if err := s.repo.ClearLock(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
