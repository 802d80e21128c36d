package tasks

import (
	"context"
	"time"

	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeResumeSessions re-enqueues sessions that are in_progress without a live task.
const TypeResumeSessions = "deploy:resume"

// SessionResumer re-enqueues every in_progress session.
type SessionResumer interface {
	ResumeSessions(ctx context.Context) (int, error)
}

// NewResumeTask builds the periodic sweep task. Overlapping sweeps are
// collapsed by asynq's uniqueness lock.
func NewResumeTask(every time.Duration) *asynq.Task {
	return asynq.NewTask(TypeResumeSessions, nil,
		asynq.Queue(QueueDeploy),
		asynq.MaxRetry(0),
		asynq.Unique(every),
		asynq.Timeout(every),
	)
}

type ResumeTaskHandler struct {
	resumer SessionResumer
}

func NewResumeTaskHandler(resumer SessionResumer) *ResumeTaskHandler {
	return &ResumeTaskHandler{resumer: resumer}
}

func (h *ResumeTaskHandler) HandleResume(ctx context.Context, _ *asynq.Task) error {
	n, err := h.resumer.ResumeSessions(ctx)
	if err != nil {
		logger.Ctx(ctx).Error("resume sweep failed", zap.Error(err))
		return err
	}
	if n > 0 {
		logger.Ctx(ctx).Info("resume sweep done", zap.Int("sessions", n))
	}
	return nil
}

// RegisterResumeSweep schedules the sweep on s every interval.
func RegisterResumeSweep(s *asynq.Scheduler, every time.Duration) (string, error) {
	return s.Register("@every "+every.String(), NewResumeTask(every))
}
