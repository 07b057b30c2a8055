package ports

import (
	"context"
	"time"

	"github.com/taskhive/taskhive-api/internal/core/domain"
)

// CreateTaskInput carries all data needed to create a new task.
// OwnerID is optional; when set by an admin the task is created on behalf
// of that user, who becomes the owner.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    domain.TaskPriority // defaults to medium when empty
	OwnerID     string
}

// ListTasksInput carries the list query parameters. The visibility scope
// is derived from the requester, never from the input.
type ListTasksInput struct {
	Completed *bool
	Priority  domain.TaskPriority
	SortBy    string
}

// TaskService defines use-case operations for tasks. Every operation
// resolves authorization through the domain policy before touching the
// repository.
type TaskService interface {
	Create(ctx context.Context, requester *domain.User, in CreateTaskInput) (*domain.Task, error)
	List(ctx context.Context, requester *domain.User, in ListTasksInput) ([]*domain.Task, error)
	GetByID(ctx context.Context, requester *domain.User, id string) (*domain.Task, error)
	Update(ctx context.Context, requester *domain.User, id string, patch TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, requester *domain.User, id string) error
	Assign(ctx context.Context, requester *domain.User, taskID, assigneeID string) (*domain.Task, error)
	Unassign(ctx context.Context, requester *domain.User, taskID string) (*domain.Task, error)
}
