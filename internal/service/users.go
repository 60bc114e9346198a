package service

import (
	"context"
	"fmt"

	"github.com/junceapp/caseflow/internal/errs"
	"github.com/junceapp/caseflow/internal/model"
	"github.com/junceapp/caseflow/internal/repository"
)

// UserService defines user profile operations.
type UserService interface {
	// Ensure creates the account on first sight and returns it.
	Ensure(ctx context.Context, id string) (*model.User, error)
	// Create inserts a fully specified user (administrative).
	Create(ctx context.Context, u *model.User) error
	// Get loads a live user.
	Get(ctx context.Context, id string) (*model.User, error)
	// List returns one page of live users.
	List(ctx context.Context, page, limit int) (*model.UserPage, error)
	// UpdateProfile applies a partial profile update.
	UpdateProfile(ctx context.Context, id string, p model.ProfilePatch) error
	// SetRoles updates the staff flags (administrative).
	SetRoles(ctx context.Context, id string, isAdmin, isAudit bool) error
	// Delete soft-deletes a user (administrative).
	Delete(ctx context.Context, id string) error
}

type UserServiceImpl struct {
	repo repository.UserRepository
}

// NewUserService constructs UserService.
func NewUserService(repo repository.UserRepository) *UserServiceImpl {
	return &UserServiceImpl{repo: repo}
}

// Ensure creates the account on first sight and returns it.
func (s *UserServiceImpl) Ensure(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.repo.Ensure(ctx, id)
}

// Create inserts a fully specified user.
func (s *UserServiceImpl) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.repo.Create(ctx, u)
}

// Get loads a live user.
func (s *UserServiceImpl) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.repo.GetByID(ctx, id)
}

// List returns one page of live users with paging defaults of 1/10.
func (s *UserServiceImpl) List(ctx context.Context, page, limit int) (*model.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return &model.UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

// UpdateProfile applies a partial profile update.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id string, p model.ProfilePatch) error {
	if id == "" {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.repo.UpdateProfile(ctx, id, p)
}

// SetRoles updates the staff flags.
func (s *UserServiceImpl) SetRoles(ctx context.Context, id string, isAdmin, isAudit bool) error {
	if id == "" {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.repo.SetRoles(ctx, id, isAdmin, isAudit)
}

// Delete soft-deletes a user.
func (s *UserServiceImpl) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.repo.SoftDelete(ctx, id)
}
