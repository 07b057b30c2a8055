package domain

import (
	"errors"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

var ErrTaskNotFound = errors.New("task not found")
var ErrForbidden = errors.New("access forbidden")
var ErrValidation = errors.New("validation failed")

// ValidStatus reports whether s is one of the known task statuses.
func ValidStatus(s TaskStatus) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ValidPriority reports whether p is one of the known task priorities.
func ValidPriority(p TaskPriority) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task is the core aggregate. The owner is set at creation and never changes.
// AssignedTo and AssignedBy are either both set or both unset.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	DueDate     time.Time    `json:"dueDate"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	OwnerID     string       `json:"ownerId"`
	AssignedTo  *string      `json:"assignedTo"`
	AssignedBy  *string      `json:"assignedBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Completed reports whether the task has reached its terminal status.
func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}

// Stats is the aggregate snapshot served to administrators.
type Stats struct {
	TotalUsers          int64 `json:"totalUsers"`
	TotalTasks          int64 `json:"totalTasks"`
	CompletedTasks      int64 `json:"completedTasks"`
	PendingTasks        int64 `json:"pendingTasks"`
	HighPriorityTasks   int64 `json:"highPriorityTasks"`
	MediumPriorityTasks int64 `json:"mediumPriorityTasks"`
	LowPriorityTasks    int64 `json:"lowPriorityTasks"`
	OverdueTasks        int64 `json:"overdueTasks"`
	TasksCreatedToday   int64 `json:"tasksCreatedToday"`
	ActiveUsers         int64 `json:"activeUsers"`
	CompletionRate      int   `json:"completionRate"`
}
