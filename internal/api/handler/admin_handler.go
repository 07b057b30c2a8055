package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
)

// AdminHandler handles the administrative HTTP surface: user management,
// cross-user task views, assignment, and aggregate statistics.
type AdminHandler struct {
	admin ports.AdminService
	tasks ports.TaskService
}

func NewAdminHandler(admin ports.AdminService, tasks ports.TaskService) *AdminHandler {
	return &AdminHandler{admin: admin, tasks: tasks}
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	users, err := h.admin.ListUsers(c.Request().Context(), user)
	if err != nil {
		return adminError(c, err)
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, listUsersResponse{Users: out})
}

// CreateUser handles POST /api/admin/users. The route sits behind
// authentication only: when no admin exists yet, the first authenticated
// caller may create the initial admin account. Every later call requires
// the admin role.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	created, err := h.admin.CreateUser(c.Request().Context(), user, ports.CreateUserInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return adminError(c, err)
	}

	return c.JSON(http.StatusCreated, userEnvelope{User: toUserResponse(created)})
}

// ChangeRole handles PUT /api/admin/users/:id/role.
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	updated, err := h.admin.ChangeUserRole(c.Request().Context(), user, c.Param("id"), req.Role)
	if err != nil {
		return adminError(c, err)
	}

	return c.JSON(http.StatusOK, userEnvelope{User: toUserResponse(updated)})
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	stats, err := h.admin.Stats(c.Request().Context(), user, time.Now())
	if err != nil {
		return adminError(c, err)
	}

	return c.JSON(http.StatusOK, statsResponse{Stats: *stats})
}

// ListTasks handles GET /api/admin/tasks, returning every task with its
// owner's profile embedded.
func (h *AdminHandler) ListTasks(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	tasks, err := h.admin.ListAllTasks(c.Request().Context(), user)
	if err != nil {
		return adminError(c, err)
	}

	out := make([]adminTaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toAdminTaskResponse(t))
	}
	return c.JSON(http.StatusOK, listAdminTasksResponse{Count: len(out), Tasks: out})
}

// CreateTask handles POST /api/admin/tasks, creating a task owned by the
// user named in the body.
func (h *AdminHandler) CreateTask(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req adminCreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	task, err := h.tasks.Create(c.Request().Context(), user, ports.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    domain.TaskPriority(req.Priority),
		OwnerID:     req.UserID,
	})
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(http.StatusCreated, taskEnvelope{Task: toTaskResponse(task)})
}

// AssignTask handles PUT /api/admin/tasks/:id/assign.
func (h *AdminHandler) AssignTask(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req assignTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	task, err := h.tasks.Assign(c.Request().Context(), user, c.Param("id"), req.AssignedTo)
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(http.StatusOK, taskEnvelope{Task: toTaskResponse(task)})
}

// UnassignTask handles DELETE /api/admin/tasks/:id/assign. Clearing an
// already unassigned task succeeds.
func (h *AdminHandler) UnassignTask(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	task, err := h.tasks.Unassign(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(http.StatusOK, taskEnvelope{Task: toTaskResponse(task)})
}

// adminError maps administrative use-case errors onto HTTP responses.
func adminError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrSelfDemotion):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
