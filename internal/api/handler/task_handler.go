package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
)

// TaskHandler handles HTTP requests for task operations. Authorization
// decisions live in the service layer; the handler only shapes the
// transport.
type TaskHandler struct {
	service ports.TaskService
}

func NewTaskHandler(service ports.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	task, err := h.service.Create(c.Request().Context(), user, ports.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    domain.TaskPriority(req.Priority),
	})
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(http.StatusCreated, taskEnvelope{Task: toTaskResponse(task)})
}

// List handles GET /api/tasks. Regular users see tasks they own or are
// assigned to; admins see everything.
func (h *TaskHandler) List(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	in := ports.ListTasksInput{
		Priority: domain.TaskPriority(c.QueryParam("priority")),
		SortBy:   c.QueryParam("sortBy"),
	}
	if raw := c.QueryParam("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "completed must be true or false"})
		}
		in.Completed = &completed
	}

	tasks, err := h.service.List(c.Request().Context(), user, in)
	if err != nil {
		return taskError(c, err)
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return c.JSON(http.StatusOK, listTasksResponse{Count: len(out), Tasks: out})
}

// Get handles GET /api/tasks/:id. A task outside the requester's
// visibility is reported as not found.
func (h *TaskHandler) Get(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	task, err := h.service.GetByID(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(http.StatusOK, taskEnvelope{Task: toTaskResponse(task)})
}

// Update handles PUT /api/tasks/:id. Absent fields are left unchanged.
func (h *TaskHandler) Update(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	patch := ports.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		patch.Priority = &p
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		patch.Status = &s
	}

	task, err := h.service.Update(c.Request().Context(), user, c.Param("id"), patch)
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(http.StatusOK, taskEnvelope{Task: toTaskResponse(task)})
}

// Delete handles DELETE /api/tasks/:id. Assignees cannot delete; only the
// owner or an admin can.
func (h *TaskHandler) Delete(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), user, c.Param("id")); err != nil {
		return taskError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "task deleted"})
}

// taskError maps task use-case errors onto HTTP responses.
func taskError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
	case errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
