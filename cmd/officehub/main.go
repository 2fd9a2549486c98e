package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/officehub/officehub/internal/app"
	"github.com/officehub/officehub/internal/auth"
	"github.com/officehub/officehub/internal/departments"
	"github.com/officehub/officehub/internal/platform/cache"
	"github.com/officehub/officehub/internal/platform/db"
	"github.com/officehub/officehub/internal/policy"
	"github.com/officehub/officehub/internal/projects"
	"github.com/officehub/officehub/internal/shared"
	"github.com/officehub/officehub/internal/users"
)

// auditDanglingRecorder forwards dropped assignment references to the audit
// trail so the nightly scan is not the only place they surface.
type auditDanglingRecorder struct {
	audit  *shared.AuditLogger
	logger *slog.Logger
}

func (r auditDanglingRecorder) RecordDangling(ctx context.Context, a policy.Assignment) {
	err := r.audit.Record(ctx, shared.AuditLog{
		Action:   "authz.dangling_detected",
		Entity:   "assignment",
		EntityID: a.ID,
		Meta: map[string]any{
			"user_id":       a.UserID,
			"policy_id":     a.PolicyID,
			"department_id": a.DepartmentID,
		},
	})
	if err != nil && r.logger != nil {
		r.logger.Warn("record dangling reference", slog.Any("error", err))
	}
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)

	policyRepo := policy.NewRepository(dbpool)
	resolver := policy.NewResolver(policyRepo, logger,
		policy.WithDanglingRecorder(auditDanglingRecorder{audit: auditLogger, logger: logger}))
	permissionCache := policy.NewCache(redisClient, cfg.PermissionCacheTTL)
	cachedResolver := policy.NewCachedResolver(resolver, permissionCache, logger)
	policyService := policy.NewService(policyRepo, logger, auditLogger, permissionCache)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)

	guard := policy.Middleware{Checker: cachedResolver, Directory: usersService, Logger: logger}

	policyHandler := policy.NewHandler(logger, policyService, cachedResolver, guard)
	usersHandler := users.NewHandler(logger, usersService, guard)

	departmentsRepo := departments.NewRepository(dbpool)
	departmentsService := departments.NewService(departmentsRepo)
	departmentsHandler := departments.NewHandler(logger, departmentsService, guard)

	projectsRepo := projects.NewRepository(dbpool)
	projectsService := projects.NewService(projectsRepo, cachedResolver)
	projectsHandler := projects.NewHandler(logger, projectsService, guard)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(usersRepo, authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	router := app.NewRouter(app.RouterParams{
		Middleware: app.MiddlewareConfig{
			Logger:         logger,
			Config:         cfg,
			SessionManager: sessionManager,
			CSRFManager:    csrfManager,
		},
		AuthHandler:        authHandler,
		PolicyHandler:      policyHandler,
		DepartmentsHandler: departmentsHandler,
		UsersHandler:       usersHandler,
		ProjectsHandler:    projectsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
