package services

import (
	"context"
	"fmt"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/repository"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/brandhub/deploycenter/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enqueuer hands a launched session to the dispatch worker.
type Enqueuer interface {
	EnqueueSession(ctx context.Context, sessionID uuid.UUID) error
}

type SessionService interface {
	CreateSession(ctx context.Context, input *CreateSessionInput) (*models.DeploymentSession, error)
	LaunchSession(ctx context.Context, id uuid.UUID, launchedBy string) (*models.DeploymentSession, error)
	CancelSession(ctx context.Context, id uuid.UUID) (*models.DeploymentSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.DeploymentSession, error)
	ListSessions(ctx context.Context, status models.SessionStatus) ([]models.DeploymentSession, error)
	ListSessionCommits(ctx context.Context, id uuid.UUID) ([]models.SessionCommit, error)
	// ResumeSessions re-enqueues every in_progress session, returning how
	// many. The worker runs it at start and then periodically.
	ResumeSessions(ctx context.Context) (int, error)
}

type CreateSessionInput struct {
	SessionName    string
	CommitIDs      []string
	TargetBranches []string
	LaunchedBy     string
}

type sessionService struct {
	sessions repository.SessionRepository
	commits  repository.CommitRepository
	queue    Enqueuer
	now      func() time.Time
}

func NewSessionService(sessions repository.SessionRepository, commits repository.CommitRepository, queue Enqueuer) SessionService {
	return &sessionService{sessions: sessions, commits: commits, queue: queue, now: time.Now}
}

var _ SessionService = (*sessionService)(nil)

func (s *sessionService) CreateSession(ctx context.Context, in *CreateSessionInput) (*models.DeploymentSession, error) {
	commitIDs := dedupe(in.CommitIDs)
	branches := dedupe(in.TargetBranches)
	if len(commitIDs) == 0 {
		return nil, appErr.Validation("commitIds must not be empty")
	}
	if len(branches) == 0 {
		return nil, appErr.Validation("targetBranches must not be empty")
	}

	found, err := s.commits.GetMany(ctx, commitIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Commit, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	for _, id := range commitIDs {
		c, ok := byID[id]
		if !ok {
			return nil, appErr.NotFound(fmt.Sprintf("commit %s not found", id)).WithMeta("commitId", id)
		}
		if c.Status == models.CommitArchived {
			return nil, appErr.NotFound(fmt.Sprintf("commit %s is archived", id)).WithMeta("commitId", id)
		}
	}

	name := in.SessionName
	if name == "" {
		name = "session " + s.now().UTC().Format(time.RFC3339)
	}
	sess := &models.DeploymentSession{
		ID:             uuid.New(),
		SessionName:    name,
		CommitIDs:      commitIDs,
		TargetBranches: branches,
		Status:         models.SessionPending,
		TotalBranches:  len(commitIDs) * len(branches),
		LaunchedBy:     in.LaunchedBy,
	}
	units := make([]models.SessionCommit, 0, sess.TotalBranches)
	for _, c := range commitIDs {
		for _, b := range branches {
			units = append(units, models.SessionCommit{
				ID:                  uuid.New(),
				DeploymentSessionID: sess.ID,
				CommitID:            c,
				TargetBranch:        b,
				Seq:                 len(units),
				Status:              models.UnitReady,
			})
		}
	}

	if err := s.sessions.CreateWithCommits(ctx, sess, units); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info("deployment session created",
		zap.String("session_id", sess.ID.String()),
		zap.Int("commits", len(commitIDs)),
		zap.Int("branches", len(branches)),
		zap.Int("total", sess.TotalBranches))
	return sess, nil
}

func (s *sessionService) LaunchSession(ctx context.Context, id uuid.UUID, launchedBy string) (*models.DeploymentSession, error) {
	sess, err := s.sessions.MarkStarted(ctx, id, launchedBy, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.queue.EnqueueSession(ctx, id); err != nil {
		log := logger.Ctx(ctx).With(zap.String("session_id", id.String()))
		log.Error("enqueue session failed", zap.Error(err))
		// Back to pending so the launch can be retried. If that fails too the
		// periodic resume sweep picks the session up.
		if rerr := s.sessions.MarkUnstarted(ctx, id); rerr != nil {
			log.Error("revert session launch failed", zap.Error(rerr))
		}
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "enqueue session failed")
	}
	logger.Ctx(ctx).Info("deployment session launched", zap.String("session_id", id.String()), zap.String("launched_by", sess.LaunchedBy))
	return sess, nil
}

func (s *sessionService) CancelSession(ctx context.Context, id uuid.UUID) (*models.DeploymentSession, error) {
	sess, err := s.sessions.MarkCancelled(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info("deployment session cancelled", zap.String("session_id", id.String()))
	return sess, nil
}

func (s *sessionService) GetSession(ctx context.Context, id uuid.UUID) (*models.DeploymentSession, error) {
	var sess models.DeploymentSession
	if err := s.sessions.GetByID(ctx, id, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionService) ListSessions(ctx context.Context, status models.SessionStatus) ([]models.DeploymentSession, error) {
	return s.sessions.List(ctx, status)
}

func (s *sessionService) ListSessionCommits(ctx context.Context, id uuid.UUID) ([]models.SessionCommit, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return s.sessions.ListUnits(ctx, id)
}

func (s *sessionService) ResumeSessions(ctx context.Context) (int, error) {
	running, err := s.sessions.List(ctx, models.SessionInProgress)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sess := range running {
		if err := s.queue.EnqueueSession(ctx, sess.ID); err != nil {
			logger.Ctx(ctx).Error("resume session failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
			continue
		}
		n++
	}
	if n > 0 {
		logger.Ctx(ctx).Info("resumed in-progress sessions", zap.Int("count", n))
	}
	return n, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
