package ports

import (
	"context"
	"time"

	"github.com/taskhive/taskhive-api/internal/core/domain"
)

// TaskFilter carries all query parameters for listing tasks.
// Scope is always set by the service layer from the visibility policy.
type TaskFilter struct {
	Scope     string               // empty = unrestricted (admin); else owner-or-assignee user id
	Completed *bool                // optional: true = completed status, false = any other status
	Priority  domain.TaskPriority  // optional: filter by priority
	SortBy    string               // dueDate, priority, title, createdAt; default dueDate
	Desc      bool                 // descending sort order
}

// TaskPatch enumerates exactly the mutable task fields. A nil field means
// "leave unchanged". Ownership and assignment never travel in a patch.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *domain.TaskPriority
	Status      *domain.TaskStatus
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Priority == nil && p.Status == nil
}

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) (*domain.Task, error)
	// FindByID retrieves a task by id. A non-empty scope additionally
	// restricts the match to tasks the scoped user owns or is assigned,
	// so an out-of-scope task is indistinguishable from an absent one.
	FindByID(ctx context.Context, id, scope string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	Update(ctx context.Context, id string, patch TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	// SetAssignment writes assignee and assigner in a single update so the
	// two fields are always both set or both unset. Passing nil for both
	// clears the assignment.
	SetAssignment(ctx context.Context, id string, assignedTo, assignedBy *string) (*domain.Task, error)
	// Stats aggregates task counts over the full collection as of the
	// given instant. TotalUsers and CompletionRate are filled by the caller.
	Stats(ctx context.Context, asOf time.Time) (domain.Stats, error)
}
