package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
	"github.com/taskhive/taskhive-api/internal/metrics"
)

// TaskService orchestrates the authorization policy and the task store.
type TaskService struct {
	tasks  ports.TaskRepository
	users  ports.UserRepository
	audit  ports.AuditEmitter
	logger zerolog.Logger
}

func NewTaskService(tasks ports.TaskRepository, users ports.UserRepository, audit ports.AuditEmitter, logger zerolog.Logger) *TaskService {
	if audit == nil {
		audit = ports.NopAuditEmitter{}
	}
	return &TaskService{tasks: tasks, users: users, audit: audit, logger: logger}
}

// Create creates a new task owned by the requester, or, for admins, by the
// user named in OwnerID.
func (s *TaskService) Create(ctx context.Context, requester *domain.User, in ports.CreateTaskInput) (*domain.Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if in.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: dueDate is required", domain.ErrValidation)
	}

	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: priority must be low, medium or high", domain.ErrValidation)
	}

	ownerID := requester.ID
	if in.OwnerID != "" && in.OwnerID != requester.ID {
		if requester.Role != domain.RoleAdmin {
			return nil, domain.ErrForbidden
		}
		if _, err := s.users.FindByID(ctx, in.OwnerID); err != nil {
			return nil, err
		}
		ownerID = in.OwnerID
	}

	now := time.Now().UTC()
	task, err := s.tasks.Create(ctx, &domain.Task{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    priority,
		Status:      domain.StatusPending,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create task")
		return nil, err
	}

	metrics.TasksCreatedTotal.WithLabelValues(string(priority)).Inc()
	s.audit.Emit(ports.AuditEvent{
		Action:     ports.AuditTaskCreated,
		ActorID:    requester.ID,
		SubjectID:  task.ID,
		OccurredAt: now,
	})
	return task, nil
}

// List returns the tasks visible to the requester, optionally narrowed by
// completion and priority, ascending by SortBy (default due date).
func (s *TaskService) List(ctx context.Context, requester *domain.User, in ports.ListTasksInput) ([]*domain.Task, error) {
	if in.Priority != "" && !domain.ValidPriority(in.Priority) {
		return nil, fmt.Errorf("%w: priority must be low, medium or high", domain.ErrValidation)
	}

	tasks, err := s.tasks.List(ctx, ports.TaskFilter{
		Scope:     domain.VisibilityScope(requester),
		Completed: in.Completed,
		Priority:  in.Priority,
		SortBy:    in.SortBy,
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// GetByID retrieves a single task. Absent and invisible tasks produce the
// same not-found error so existence never leaks.
func (s *TaskService) GetByID(ctx context.Context, requester *domain.User, id string) (*domain.Task, error) {
	return s.tasks.FindByID(ctx, id, domain.VisibilityScope(requester))
}

// Update applies a partial update; omitted fields stay unchanged.
func (s *TaskService) Update(ctx context.Context, requester *domain.User, id string, patch ports.TaskPatch) (*domain.Task, error) {
	if patch.Title != nil && *patch.Title == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
	}
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		return nil, fmt.Errorf("%w: priority must be low, medium or high", domain.ErrValidation)
	}
	if patch.Status != nil && !domain.ValidStatus(*patch.Status) {
		return nil, fmt.Errorf("%w: status must be pending, in_progress or completed", domain.ErrValidation)
	}

	task, err := s.tasks.FindByID(ctx, id, domain.VisibilityScope(requester))
	if err != nil {
		return nil, err
	}
	if !domain.CanMutate(requester, task) {
		metrics.PolicyDenialsTotal.WithLabelValues("update").Inc()
		return nil, domain.ErrForbidden
	}
	if patch.Empty() {
		return task, nil
	}

	updated, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ports.AuditEvent{
		Action:     ports.AuditTaskUpdated,
		ActorID:    requester.ID,
		SubjectID:  updated.ID,
		OccurredAt: time.Now().UTC(),
	})
	return updated, nil
}

// Delete removes a task. Owners and admins only; assignees cannot delete.
func (s *TaskService) Delete(ctx context.Context, requester *domain.User, id string) error {
	task, err := s.tasks.FindByID(ctx, id, domain.VisibilityScope(requester))
	if err != nil {
		return err
	}
	if !domain.CanDelete(requester, task) {
		metrics.PolicyDenialsTotal.WithLabelValues("delete").Inc()
		return domain.ErrForbidden
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Emit(ports.AuditEvent{
		Action:     ports.AuditTaskDeleted,
		ActorID:    requester.ID,
		SubjectID:  task.ID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// Assign sets the task's assignee and records the requester as assigner.
// Both fields are written in one repository call.
func (s *TaskService) Assign(ctx context.Context, requester *domain.User, taskID, assigneeID string) (*domain.Task, error) {
	if !domain.CanAssign(requester) {
		metrics.PolicyDenialsTotal.WithLabelValues("assign").Inc()
		return nil, domain.ErrForbidden
	}
	if assigneeID == "" {
		return nil, fmt.Errorf("%w: assignedTo is required", domain.ErrValidation)
	}
	if _, err := s.users.FindByID(ctx, assigneeID); err != nil {
		return nil, err
	}

	task, err := s.tasks.SetAssignment(ctx, taskID, &assigneeID, &requester.ID)
	if err != nil {
		return nil, err
	}

	metrics.TasksAssignedTotal.Inc()
	s.audit.Emit(ports.AuditEvent{
		Action:     ports.AuditTaskAssigned,
		ActorID:    requester.ID,
		SubjectID:  task.ID,
		Detail:     assigneeID,
		OccurredAt: time.Now().UTC(),
	})
	return task, nil
}

// Unassign clears assignee and assigner together. Idempotent: unassigning
// an unassigned task succeeds.
func (s *TaskService) Unassign(ctx context.Context, requester *domain.User, taskID string) (*domain.Task, error) {
	if !domain.CanAssign(requester) {
		metrics.PolicyDenialsTotal.WithLabelValues("unassign").Inc()
		return nil, domain.ErrForbidden
	}

	task, err := s.tasks.SetAssignment(ctx, taskID, nil, nil)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ports.AuditEvent{
		Action:     ports.AuditTaskUnassigned,
		ActorID:    requester.ID,
		SubjectID:  task.ID,
		OccurredAt: time.Now().UTC(),
	})
	return task, nil
}
