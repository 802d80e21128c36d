package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository interface {
	BaseRepository[models.DeploymentSession]
	// CreateWithCommits persists the session and all of its units, or nothing.
	CreateWithCommits(ctx context.Context, s *models.DeploymentSession, units []models.SessionCommit) error
	List(ctx context.Context, status models.SessionStatus) ([]models.DeploymentSession, error)
	ListUnits(ctx context.Context, sessionID uuid.UUID) ([]models.SessionCommit, error)
	MarkStarted(ctx context.Context, id uuid.UUID, by string, at time.Time) (*models.DeploymentSession, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (*models.DeploymentSession, error)
	// MarkUnstarted returns an in_progress session that has not finished any
	// unit to pending, undoing a launch whose task never reached the queue.
	MarkUnstarted(ctx context.Context, id uuid.UUID) error
	// ClaimUnit moves a ready unit, or one left in_progress by a crashed
	// worker, to in_progress. It reports false for finished units.
	ClaimUnit(ctx context.Context, unitID uuid.UUID, at time.Time) (bool, error)
	// CompleteUnit records a unit's outcome and bumps the matching session
	// counter in the same transaction. Completing a unit twice is a no-op.
	CompleteUnit(ctx context.Context, unit *models.SessionCommit, status models.UnitStatus, errMsg *string, at time.Time) error
	// Finalize moves an in_progress session whose units all finished to its
	// terminal status.
	Finalize(ctx context.Context, id uuid.UUID, at time.Time) (*models.DeploymentSession, error)
}

type sessionRepository struct {
	BaseRepository[models.DeploymentSession]
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{BaseRepository: NewBaseRepository[models.DeploymentSession](db, "session"), db: db}
}

func (r *sessionRepository) CreateWithCommits(ctx context.Context, s *models.DeploymentSession, units []models.SessionCommit) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(units, 500).Error
	})
	return appErr.FromDB(err, "", "create session failed")
}

func (r *sessionRepository) List(ctx context.Context, status models.SessionStatus) ([]models.DeploymentSession, error) {
	q := r.db.WithContext(ctx).Model(&models.DeploymentSession{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.DeploymentSession
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "list sessions failed")
	}
	return out, nil
}

func (r *sessionRepository) ListUnits(ctx context.Context, sessionID uuid.UUID) ([]models.SessionCommit, error) {
	var out []models.SessionCommit
	err := r.db.WithContext(ctx).Where("deployment_session_id = ?", sessionID).Order("seq").Find(&out).Error
	if err != nil {
		return nil, appErr.FromDB(err, "", "list session commits failed")
	}
	return out, nil
}

func (r *sessionRepository) MarkStarted(ctx context.Context, id uuid.UUID, by string, at time.Time) (*models.DeploymentSession, error) {
	updates := map[string]any{"status": models.SessionInProgress, "started_at": at}
	if by != "" {
		updates["launched_by"] = by
	}
	return r.transition(ctx, id, models.SessionPending, updates)
}

func (r *sessionRepository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (*models.DeploymentSession, error) {
	return r.transition(ctx, id, models.SessionPending, map[string]any{"status": models.SessionCancelled, "completed_at": at})
}

func (r *sessionRepository) MarkUnstarted(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.DeploymentSession{}).
		Where("id = ? AND status = ? AND completed_branches = 0 AND failed_branches = 0", id, models.SessionInProgress).
		Updates(map[string]any{"status": models.SessionPending, "started_at": nil})
	if res.Error != nil {
		return appErr.FromDB(res.Error, "", "revert session launch failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeConflict, "session already running")
	}
	return nil
}

func (r *sessionRepository) transition(ctx context.Context, id uuid.UUID, from models.SessionStatus, updates map[string]any) (*models.DeploymentSession, error) {
	res := r.db.WithContext(ctx).Model(&models.DeploymentSession{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return nil, appErr.FromDB(res.Error, "", "update session failed")
	}
	var s models.DeploymentSession
	if err := r.GetByID(ctx, id, &s); err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, appErr.New(appErr.CodeConflict, fmt.Sprintf("session is %s, expected %s", s.Status, from)).
			WithMeta("status", s.Status)
	}
	return &s, nil
}

func (r *sessionRepository) ClaimUnit(ctx context.Context, unitID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.SessionCommit{}).
		Where("id = ? AND status IN ?", unitID, []models.UnitStatus{models.UnitReady, models.UnitInProgress}).
		Updates(map[string]any{"status": models.UnitInProgress, "started_at": at})
	if res.Error != nil {
		return false, appErr.FromDB(res.Error, "", "claim session commit failed")
	}
	return res.RowsAffected == 1, nil
}

func (r *sessionRepository) CompleteUnit(ctx context.Context, unit *models.SessionCommit, status models.UnitStatus, errMsg *string, at time.Time) error {
	counter := "completed_branches"
	switch status {
	case models.UnitDeployed:
	case models.UnitFailed:
		counter = "failed_branches"
	default:
		return appErr.Validation(fmt.Sprintf("%s is not a terminal unit status", status))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SessionCommit{}).
			Where("id = ? AND status = ?", unit.ID, models.UnitInProgress).
			Updates(map[string]any{"status": status, "completed_at": at, "error_message": errMsg})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.DeploymentSession{}).
			Where("id = ?", unit.DeploymentSessionID).
			UpdateColumn(counter, gorm.Expr(counter+" + 1")).Error
	})
	if err != nil {
		return appErr.FromDB(err, "", "complete session commit failed")
	}
	unit.Status = status
	unit.CompletedAt = &at
	unit.ErrorMessage = errMsg
	return nil
}

func (r *sessionRepository) Finalize(ctx context.Context, id uuid.UUID, at time.Time) (*models.DeploymentSession, error) {
	var s models.DeploymentSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error; err != nil {
			return err
		}
		if s.Status != models.SessionInProgress || s.CompletedBranches+s.FailedBranches < s.TotalBranches {
			return nil
		}
		s.Status = models.FinalSessionStatus(s.CompletedBranches, s.FailedBranches)
		s.CompletedAt = &at
		return tx.Model(&s).Updates(map[string]any{"status": s.Status, "completed_at": at}).Error
	})
	if err != nil {
		return nil, appErr.FromDB(err, "session not found", "finalize session failed")
	}
	return &s, nil
}
