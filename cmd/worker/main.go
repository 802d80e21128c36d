package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brandhub/deploycenter/pkg/config"
	"github.com/brandhub/deploycenter/pkg/database"
	"github.com/brandhub/deploycenter/pkg/logger"

	"github.com/brandhub/deploycenter/internal/dispatcher"
	"github.com/brandhub/deploycenter/internal/dispatcher/webhook"
	"github.com/brandhub/deploycenter/internal/payload"
	"github.com/brandhub/deploycenter/internal/queue/tasks"
	"github.com/brandhub/deploycenter/internal/repository"
	"github.com/brandhub/deploycenter/internal/services"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues:      map[string]int{tasks.QueueDeploy: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.L().Error("task failed",
				zap.String("type", task.Type()),
				zap.Int("retried", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err))
		}),
	})

	// Initialize DB and repositories for task handlers
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	commitRepo := repository.NewCommitRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	sender := webhook.NewClient(webhook.Options{
		Secret:      cfg.WebhookSecret,
		Timeout:     cfg.WebhookTimeout,
		MaxAttempts: cfg.WebhookMaxAttempts,
	})
	d := dispatcher.New(dispatcher.Deps{
		Sessions: sessionRepo,
		Commits:  commitRepo,
		Branches: repository.NewBranchRepository(db),
		Tenants:  repository.NewTenantRepository(db),
		Releases: repository.NewReleaseRepository(db),
		Statuses: repository.NewDeploymentStatusRepository(db),
		Sender:   sender,
		Payloads: payload.NewRegistry(),
	}, cfg.WebhookBaseURL)

	queue := asynq.NewClient(redisOpt)
	defer queue.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	sessionSvc := services.NewSessionService(sessionRepo, commitRepo, tasks.NewEnqueuer(queue, inspector))

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeDeploySession, tasks.NewSessionTaskHandler(d).HandleSession)
	mux.HandleFunc(tasks.TypeResumeSessions, tasks.NewResumeTaskHandler(sessionSvc).HandleResume)

	// Sessions left in_progress by a previous worker get their task back.
	if n, err := sessionSvc.ResumeSessions(ctx); err != nil {
		log.Error("resume sessions failed", zap.Error(err))
	} else {
		log.Info("in-progress sessions checked", zap.Int("resumed", n))
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
				logger.L().Warn("schedule resume sweep failed", zap.Error(err))
			}
		},
	})
	entryID, err := tasks.RegisterResumeSweep(scheduler, cfg.ResumeInterval)
	if err != nil {
		log.Fatal("register resume sweep failed", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal("scheduler start failed", zap.Error(err))
	}
	log.Info("resume sweep scheduled", zap.String("entry_id", entryID), zap.Duration("every", cfg.ResumeInterval))

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Allow in-flight tasks to finish gracefully
	scheduler.Shutdown()
	srv.Shutdown()
}
