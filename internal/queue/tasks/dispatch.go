package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TypeDeploySession runs every pending unit of one deployment session.
	TypeDeploySession = "deploy:session"
	// QueueDeploy is the asynq queue session tasks are placed on.
	QueueDeploy = "deploy"
)

// SessionPayload is the task payload for session dispatch tasks.
type SessionPayload struct {
	SessionID string `json:"session_id"`
}

// SessionRunner executes a session to completion.
type SessionRunner interface {
	RunSession(ctx context.Context, id uuid.UUID) (*models.DeploymentSession, error)
}

// NewSessionTask builds the task for a session. The task id is the session id,
// so a session has at most one queued or running task at any time.
func NewSessionTask(sessionID uuid.UUID) (*asynq.Task, error) {
	pb, err := json.Marshal(SessionPayload{SessionID: sessionID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDeploySession, pb,
		asynq.TaskID(sessionID.String()),
		asynq.Queue(QueueDeploy),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Minute),
	), nil
}

// SessionTaskHandler handles session dispatch tasks.
type SessionTaskHandler struct {
	runner SessionRunner
}

func NewSessionTaskHandler(runner SessionRunner) *SessionTaskHandler {
	return &SessionTaskHandler{runner: runner}
}

func (h *SessionTaskHandler) HandleSession(ctx context.Context, t *asynq.Task) error {
	var p SessionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid session task payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(p.SessionID)
	if err != nil {
		logger.L().Error("invalid session id in task", zap.Error(err))
		return fmt.Errorf("parse session id: %v: %w", err, asynq.SkipRetry)
	}

	log := logger.L().With(zap.String("session_id", id.String()))
	if taskID, ok := asynq.GetTaskID(ctx); ok {
		log = log.With(zap.String("task_id", taskID))
	}
	ctx = logger.WithContext(ctx, log)
	log.Info("handling session task")

	sess, err := h.runner.RunSession(ctx, id)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			log.Warn("session vanished, dropping task", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		// Infrastructure failure: asynq retries and the session resumes
		// from its first unfinished unit.
		log.Error("session run failed", zap.Error(err))
		return err
	}

	log.Info("session task done",
		zap.String("status", string(sess.Status)),
		zap.Int("completed", sess.CompletedBranches),
		zap.Int("failed", sess.FailedBranches))
	return nil
}

// TaskInspector reads and revives tasks already stored in asynq.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	RunTask(queue, id string) error
}

// Enqueuer places session tasks on the asynq queue.
type Enqueuer struct {
	client    *asynq.Client
	inspector TaskInspector
}

// NewEnqueuer returns an Enqueuer. inspector may be nil, in which case a
// session whose task ran out of retries is not revived.
func NewEnqueuer(client *asynq.Client, inspector TaskInspector) *Enqueuer {
	return &Enqueuer{client: client, inspector: inspector}
}

// EnqueueSession enqueues the session's task. A task already queued or
// running for the session is left alone; one archived after exhausting its
// retries is moved back to pending.
func (e *Enqueuer) EnqueueSession(ctx context.Context, sessionID uuid.UUID) error {
	task, err := NewSessionTask(sessionID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return e.reviveArchived(ctx, sessionID.String())
	}
	if err != nil {
		return err
	}
	logger.Ctx(ctx).Info("session task enqueued",
		zap.String("session_id", sessionID.String()),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

func (e *Enqueuer) reviveArchived(ctx context.Context, taskID string) error {
	log := logger.Ctx(ctx).With(zap.String("session_id", taskID))
	if e.inspector == nil {
		log.Debug("session task already enqueued")
		return nil
	}
	info, err := e.inspector.GetTaskInfo(QueueDeploy, taskID)
	if err != nil {
		return fmt.Errorf("inspect session task: %w", err)
	}
	if info.State != asynq.TaskStateArchived {
		log.Debug("session task already enqueued", zap.String("state", info.State.String()))
		return nil
	}
	if err := e.inspector.RunTask(QueueDeploy, taskID); err != nil {
		return fmt.Errorf("run archived session task: %w", err)
	}
	log.Warn("archived session task moved back to pending", zap.Int("retried", info.Retried), zap.String("last_err", info.LastErr))
	return nil
}
