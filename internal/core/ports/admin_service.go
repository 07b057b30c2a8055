package ports

import (
	"context"
	"time"

	"github.com/taskhive/taskhive-api/internal/core/domain"
)

// CreateUserInput carries the admin user-provisioning fields.
type CreateUserInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Role     string // defaults to "user" when empty
}

// TaskWithOwner pairs a task with its owner's profile for admin views.
// Owner is nil when the owning account no longer exists.
type TaskWithOwner struct {
	Task  *domain.Task
	Owner *domain.User
}

// AdminService defines the administrative operations: cross-user views,
// user provisioning, role changes, and aggregate statistics.
type AdminService interface {
	ListUsers(ctx context.Context, requester *domain.User) ([]*domain.User, error)
	// CreateUser is admin-only, except for the one-time first-admin
	// bootstrap: with no admin in the system, any authenticated requester
	// may create the initial admin account exactly once.
	CreateUser(ctx context.Context, requester *domain.User, in CreateUserInput) (*domain.User, error)
	ChangeUserRole(ctx context.Context, requester *domain.User, targetID, role string) (*domain.User, error)
	Stats(ctx context.Context, requester *domain.User, asOf time.Time) (*domain.Stats, error)
	ListAllTasks(ctx context.Context, requester *domain.User) ([]TaskWithOwner, error)
	// EnsureBootstrapAdmin provisions the first admin account during
	// startup, outside request authorization. It is a no-op when an admin
	// already exists.
	EnsureBootstrapAdmin(ctx context.Context, in CreateUserInput) error
}

// StatsCache is a TTL snapshot store for the admin stats aggregate.
// Get returns (nil, nil) on a cache miss.
type StatsCache interface {
	Get(ctx context.Context) (*domain.Stats, error)
	Set(ctx context.Context, stats *domain.Stats) error
}
