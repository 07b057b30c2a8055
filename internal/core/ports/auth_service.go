package ports

import (
	"context"

	"github.com/taskhive/taskhive-api/internal/core/domain"
)

// RegisterInput carries the self-service registration fields.
type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
}

// AuthService implements registration and login.
type AuthService interface {
	// Register creates a "user"-role account and returns a signed token
	// together with the created user.
	Register(ctx context.Context, in RegisterInput) (string, *domain.User, error)
	// Login authenticates by username or email.
	Login(ctx context.Context, usernameOrEmail, password string) (string, *domain.User, error)
}
