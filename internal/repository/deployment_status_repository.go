package repository

import (
	"context"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeploymentStatusFilter struct {
	DeploymentID string
	BranchID     string
	BranchName   string
	Status       string
	Tool         string
}

type DeploymentStatusRepository interface {
	// Record upserts the (deployment, branch) row and adds attempts to its
	// running attempt count.
	Record(ctx context.Context, st *models.DeploymentStatus, attempts int) error
	List(ctx context.Context, f DeploymentStatusFilter) ([]models.DeploymentStatus, error)
}

type deploymentStatusRepository struct {
	db *gorm.DB
}

func NewDeploymentStatusRepository(db *gorm.DB) DeploymentStatusRepository {
	return &deploymentStatusRepository{db: db}
}

func (r *deploymentStatusRepository) Record(ctx context.Context, st *models.DeploymentStatus, attempts int) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	st.AttemptCount = attempts
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "commit_id"}, {Name: "branch_name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"attempt_count":         gorm.Expr("deploy_statuses.attempt_count + ?", attempts),
			"status":                st.Status,
			"tool":                  st.Tool,
			"branch_id":             st.BranchID,
			"deployment_session_id": st.DeploymentSessionID,
			"last_attempt_at":       st.LastAttemptAt,
			"webhook_response":      st.WebhookResponse,
			"error_message":         st.ErrorMessage,
			"updated_at":            time.Now(),
		}),
	}).Create(st).Error
	return appErr.FromDB(err, "", "record deployment status failed")
}

func (r *deploymentStatusRepository) List(ctx context.Context, f DeploymentStatusFilter) ([]models.DeploymentStatus, error) {
	q := r.db.WithContext(ctx).Model(&models.DeploymentStatus{})
	if f.DeploymentID != "" {
		q = q.Where("commit_id = ?", f.DeploymentID)
	}
	if f.BranchID != "" {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	if f.BranchName != "" {
		q = q.Where("branch_name = ?", f.BranchName)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Tool != "" {
		q = q.Where("tool = ?", f.Tool)
	}
	var out []models.DeploymentStatus
	if err := q.Order("last_attempt_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "list deployment statuses failed")
	}
	return out, nil
}
