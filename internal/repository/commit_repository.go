package repository

import (
	"bytes"
	"context"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"gorm.io/gorm"
)

type CommitFilter struct {
	Tool         string
	ResourceType string
	ResourceID   string
	Status       string
	Limit        int
}

type CommitRepository interface {
	BaseRepository[models.Commit]
	List(ctx context.Context, f CommitFilter) ([]models.Commit, error)
	GetMany(ctx context.Context, ids []string) ([]models.Commit, error)
	// LatestByTool returns the most recently created non-archived commit.
	LatestByTool(ctx context.Context, tool string) (*models.Commit, error)
	MarkDeploying(ctx context.Context, id string) error
	MarkDeployed(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
	Archive(ctx context.Context, id string, at time.Time) error
}

type commitRepository struct {
	BaseRepository[models.Commit]
	db *gorm.DB
}

func NewCommitRepository(db *gorm.DB) CommitRepository {
	return &commitRepository{BaseRepository: NewBaseRepository[models.Commit](db, "commit"), db: db}
}

// Update refuses to change the payload of a commit that has left ready.
func (r *commitRepository) Update(ctx context.Context, c *models.Commit) error {
	var cur models.Commit
	if err := r.BaseRepository.GetByID(ctx, c.ID, &cur); err != nil {
		return err
	}
	if cur.Status != models.CommitReady && !bytes.Equal(cur.Payload, c.Payload) {
		return appErr.New(appErr.CodeConflict, "payload of commit "+c.ID+" is immutable once deployment started")
	}
	return r.BaseRepository.Update(ctx, c)
}

func (r *commitRepository) List(ctx context.Context, f CommitFilter) ([]models.Commit, error) {
	q := r.db.WithContext(ctx).Model(&models.Commit{})
	if f.Tool != "" {
		q = q.Where("tool = ?", f.Tool)
	}
	if f.ResourceType != "" {
		q = q.Where("resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != "" {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Commit
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "list commits failed")
	}
	return out, nil
}

func (r *commitRepository) GetMany(ctx context.Context, ids []string) ([]models.Commit, error) {
	var out []models.Commit
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "get commits failed")
	}
	return out, nil
}

func (r *commitRepository) LatestByTool(ctx context.Context, tool string) (*models.Commit, error) {
	var c models.Commit
	err := r.db.WithContext(ctx).
		Where("tool = ? AND status <> ?", tool, models.CommitArchived).
		Order("created_at DESC, id DESC").
		First(&c).Error
	if err != nil {
		return nil, appErr.FromDB(err, "no commits for tool "+tool, "get latest commit failed")
	}
	return &c, nil
}

// MarkDeploying moves a commit that is ready, or failed on an earlier
// attempt, into deploying. A deployed commit keeps its status.
func (r *commitRepository) MarkDeploying(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Commit{}).
		Where("id = ? AND status IN ?", id, []models.CommitStatus{models.CommitReady, models.CommitFailed}).
		Update("status", models.CommitDeploying).Error
	return appErr.FromDB(err, "", "mark commit deploying failed")
}

func (r *commitRepository) MarkDeployed(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Commit{}).
		Where("id = ? AND status <> ?", id, models.CommitArchived).
		Updates(map[string]any{"status": models.CommitDeployed, "deployed_at": at}).Error
	return appErr.FromDB(err, "", "mark commit deployed failed")
}

// MarkFailed only applies while no push of the commit has succeeded yet.
func (r *commitRepository) MarkFailed(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Commit{}).
		Where("id = ? AND status = ?", id, models.CommitDeploying).
		Update("status", models.CommitFailed).Error
	return appErr.FromDB(err, "", "update commit status failed")
}

func (r *commitRepository) Archive(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Commit{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": models.CommitArchived, "archived_at": at})
	if res.Error != nil {
		return appErr.FromDB(res.Error, "", "archive commit failed")
	}
	if res.RowsAffected == 0 {
		return appErr.NotFound("commit not found")
	}
	return nil
}
