package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive-api/internal/api/handler"
	"github.com/taskhive/taskhive-api/internal/api/middleware"
	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
)

// Dependencies bundles everything the router needs to register routes.
type Dependencies struct {
	Mongo     *mongo.Database
	Redis     *redis.Client
	JWTSecret string

	AuthService  ports.AuthService
	TaskService  ports.TaskService
	AdminService ports.AdminService
	// Users resolves the authenticated subject on every request.
	Users middleware.UserResolver

	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("taskhive"))

	authHandler := handler.NewAuthHandler(deps.AuthService)
	taskHandler := handler.NewTaskHandler(deps.TaskService)
	adminHandler := handler.NewAdminHandler(deps.AdminService, deps.TaskService)
	healthHandler := handler.NewHealthHandler(deps.Mongo, deps.Redis)

	authRequired := middleware.Auth(deps.JWTSecret, deps.Users)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Health probes and metrics (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Task routes (authenticated) ---
	tasks := e.Group("/api/tasks", authRequired)
	tasks.POST("", taskHandler.Create)
	tasks.GET("", taskHandler.List)
	tasks.GET("/:id", taskHandler.Get)
	tasks.PUT("/:id", taskHandler.Update)
	tasks.DELETE("/:id", taskHandler.Delete)

	// --- Admin routes ---
	// POST /api/admin/users sits behind authentication only so the one-time
	// first-admin bootstrap can go through; the service enforces the admin
	// role on every later call.
	e.POST("/api/admin/users", adminHandler.CreateUser, authRequired)

	admin := e.Group("/api/admin", authRequired, adminOnly)
	admin.GET("/users", adminHandler.ListUsers)
	admin.PUT("/users/:id/role", adminHandler.ChangeRole)
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/tasks", adminHandler.ListTasks)
	admin.POST("/tasks", adminHandler.CreateTask)
	admin.PUT("/tasks/:id", taskHandler.Update)
	admin.DELETE("/tasks/:id", taskHandler.Delete)
	admin.PUT("/tasks/:id/assign", adminHandler.AssignTask)
	admin.DELETE("/tasks/:id/assign", adminHandler.UnassignTask)

	return e
}
