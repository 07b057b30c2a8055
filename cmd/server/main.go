package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/taskhive/taskhive-api/internal/api"
	"github.com/taskhive/taskhive-api/internal/core/ports"
	"github.com/taskhive/taskhive-api/internal/core/service"
	"github.com/taskhive/taskhive-api/internal/infrastructure/config"
	mongodb "github.com/taskhive/taskhive-api/internal/infrastructure/db/mongo"
	redisdb "github.com/taskhive/taskhive-api/internal/infrastructure/db/redis"
	"github.com/taskhive/taskhive-api/internal/infrastructure/queue"
	"github.com/taskhive/taskhive-api/pkg/logger"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Get()
		l.Fatal().Err(err).Msg("loading configuration")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// --- MongoDB ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to mongodb")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("disconnecting mongodb")
		}
	}()

	// --- Redis ---
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("closing redis")
		}
	}()

	// --- Repositories ---
	userRepo := mongodb.NewUserRepository(db)
	taskRepo := mongodb.NewTaskRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	statsCache := redisdb.NewStatsCache(rdb, cfg.StatsCacheTTL)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("creating user indexes")
	}
	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("creating task indexes")
	}

	// --- Audit dispatcher ---
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	dispatcher := queue.NewDispatcher(0, auditRepo, log)
	dispatcher.Start(dispatcherCtx)

	// --- Services ---
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	taskService := service.NewTaskService(taskRepo, userRepo, dispatcher, log)
	adminService := service.NewAdminService(userRepo, taskRepo, statsCache, dispatcher, log)

	if cfg.BootstrapAdmin.Enabled() {
		err := adminService.EnsureBootstrapAdmin(ctx, ports.CreateUserInput{
			Name:     cfg.BootstrapAdmin.Name,
			Username: cfg.BootstrapAdmin.Username,
			Email:    cfg.BootstrapAdmin.Email,
			Password: cfg.BootstrapAdmin.Password,
		})
		if err != nil {
			log.Error().Err(err).Msg("bootstrap admin provisioning failed")
		}
	}

	// --- HTTP server ---
	e := api.NewRouter(api.Dependencies{
		Mongo:        db,
		Redis:        rdb,
		JWTSecret:    cfg.JWTSecret,
		AuthService:  authService,
		TaskService:  taskService,
		AdminService: adminService,
		Users:        userRepo,
		Logger:       log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")

	// Drain the server before stopping the dispatcher so audit events
	// emitted by in-flight requests still reach the workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	stopDispatcher()
	log.Info().Msg("server stopped")
}
