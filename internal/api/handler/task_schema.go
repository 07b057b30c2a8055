package handler

import (
	"time"

	"github.com/taskhive/taskhive-api/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type createTaskRequest struct {
	Title       string    `json:"title"       validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"     validate:"required"`
	Priority    string    `json:"priority"    validate:"omitempty,oneof=low medium high"`
}

// updateTaskRequest is the explicit patch object: a nil field was not
// provided and stays unchanged. Assignment is not patchable; it only moves
// through the dedicated assign endpoints.
type updateTaskRequest struct {
	Title       *string    `json:"title"       validate:"omitempty"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    *string    `json:"priority"    validate:"omitempty,oneof=low medium high"`
	Status      *string    `json:"status"      validate:"omitempty,oneof=pending in_progress completed"`
}

// --- Response types ---
// Owned by the transport layer so the JSON contract is not coupled to
// internal service changes.

type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"ownerId"`
	AssignedTo  *string   `json:"assignedTo"`
	AssignedBy  *string   `json:"assignedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaskResponse(t *domain.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		OwnerID:     t.OwnerID,
		AssignedTo:  t.AssignedTo,
		AssignedBy:  t.AssignedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type taskEnvelope struct {
	Task taskResponse `json:"task"`
}

type listTasksResponse struct {
	Count int            `json:"count"`
	Tasks []taskResponse `json:"tasks"`
}
