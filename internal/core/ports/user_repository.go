package ports

import (
	"context"

	"github.com/taskhive/taskhive-api/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns domain.ErrUserExists when the
	// username or email is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByLogin matches either the username or the email.
	FindByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	// List returns all users, newest first.
	List(ctx context.Context) ([]*domain.User, error)
	UpdateRole(ctx context.Context, id, role string) (*domain.User, error)
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	// ClaimFirstAdmin atomically claims the one-time right to create the
	// initial admin account. Exactly one caller ever receives true.
	ClaimFirstAdmin(ctx context.Context) (bool, error)
	// ReleaseFirstAdmin returns a won claim when the admin insert that
	// followed it failed, so the bootstrap stays open until an admin
	// actually exists.
	ReleaseFirstAdmin(ctx context.Context) error
}
