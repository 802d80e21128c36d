package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brandhub/deploycenter/internal/api"
	"github.com/brandhub/deploycenter/internal/api/handlers"
	"github.com/brandhub/deploycenter/internal/payload"
	"github.com/brandhub/deploycenter/internal/queue/tasks"
	"github.com/brandhub/deploycenter/internal/repository"
	"github.com/brandhub/deploycenter/internal/services"
	"github.com/brandhub/deploycenter/pkg/config"
	"github.com/brandhub/deploycenter/pkg/database"
	"github.com/brandhub/deploycenter/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting deploy center api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{Verbose: cfg.AppEnv != "production"})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql db", zap.Error(err))
	}
	defer sqlDB.Close()
	log.Info("database connected")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer queue.Close()

	brandTenantID := uuid.MustParse(cfg.BrandTenantID)
	registry := payload.NewRegistry()

	// Repositories
	commitRepo := repository.NewCommitRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	releaseRepo := repository.NewReleaseRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	statusRepo := repository.NewDeploymentStatusRepository(db)

	// Services
	commitSvc := services.NewCommitService(commitRepo, registry)
	sessionSvc := services.NewSessionService(sessionRepo, commitRepo, tasks.NewEnqueuer(queue, nil))
	releaseSvc := services.NewReleaseService(releaseRepo, branchRepo, commitRepo, sessionSvc)
	gapSvc := services.NewGapService(commitRepo, releaseRepo, branchRepo, statusRepo)
	branchSvc := services.NewBranchService(branchRepo, tenantRepo, brandTenantID)
	catalogSvc := services.NewCatalogService(services.CatalogDeps{
		Suppliers:  repository.NewSupplierRepository(db),
		Products:   repository.NewProductRepository(db),
		Categories: repository.NewCategoryRepository(db),
		Branches:   branchRepo,
		Statuses:   statusRepo,
		AutoCommit: services.NewAutoCommitter(commitSvc, nil),
	}, brandTenantID)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, /api/v1 is unauthenticated")
	}

	router := api.NewRouter(api.Dependencies{
		HMACSecret:     []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Health: handlers.NewHealthHandler(
			handlers.Check{Name: "postgres", Fn: sqlDB.PingContext},
			handlers.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		),
		Commits:  handlers.NewCommitsHandler(commitSvc),
		Sessions: handlers.NewSessionsHandler(sessionSvc),
		Releases: handlers.NewReleasesHandler(releaseSvc),
		Gap:      handlers.NewGapHandler(gapSvc),
		Branches: handlers.NewBranchesHandler(branchSvc),
		Catalog:  handlers.NewCatalogHandler(catalogSvc),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
