package repository

import (
	"context"

	"github.com/junceapp/caseflow/internal/model"
)

// UserRepository provides CRUD access for users.
type UserRepository interface {
	// Ensure creates the user on first sight (default nickname from the id
	// suffix) and returns the row either way.
	Ensure(ctx context.Context, id string) (*model.User, error)

	// Create inserts a new user; duplicate ids fail with errs.ErrConflict.
	Create(ctx context.Context, u *model.User) error

	// GetByID loads a live user by id.
	GetByID(ctx context.Context, id string) (*model.User, error)

	// List returns one page of live users plus the total live count.
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)

	// UpdateProfile applies a partial profile update.
	UpdateProfile(ctx context.Context, id string, p model.ProfilePatch) error

	// SetRoles updates the staff flags.
	SetRoles(ctx context.Context, id string, isAdmin, isAudit bool) error

	// SoftDelete marks a user not alive.
	SoftDelete(ctx context.Context, id string) error

	// TouchContact fills phone and claimant name if supplied, best-effort
	// after case creation. Empty arguments leave the column untouched.
	TouchContact(ctx context.Context, id, phone, claimantName string) error
}
