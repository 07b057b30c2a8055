package handler

import (
	"time"

	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
)

type createUserRequest struct {
	Name     string `json:"name"     validate:"required"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"     validate:"omitempty,oneof=admin user"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}

type assignTaskRequest struct {
	AssignedTo string `json:"assignedTo" validate:"required"`
}

type adminCreateTaskRequest struct {
	createTaskRequest
	UserID string `json:"userId" validate:"required"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type userEnvelope struct {
	User userResponse `json:"user"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
}

type statsResponse struct {
	Stats domain.Stats `json:"stats"`
}

// ownerSummary is the slim owner embed on admin task listings.
type ownerSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type adminTaskResponse struct {
	taskResponse
	Owner *ownerSummary `json:"owner,omitempty"`
}

func toAdminTaskResponse(t ports.TaskWithOwner) adminTaskResponse {
	out := adminTaskResponse{taskResponse: toTaskResponse(t.Task)}
	if t.Owner != nil {
		out.Owner = &ownerSummary{
			ID:       t.Owner.ID,
			Name:     t.Owner.Name,
			Username: t.Owner.Username,
			Email:    t.Owner.Email,
		}
	}
	return out
}

type listAdminTasksResponse struct {
	Count int                 `json:"count"`
	Tasks []adminTaskResponse `json:"tasks"`
}
