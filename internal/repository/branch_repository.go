package repository

import (
	"context"

	"github.com/brandhub/deploycenter/internal/models"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BranchRepository interface {
	BaseRepository[models.Branch]
	GetByName(ctx context.Context, name string) (*models.Branch, error)
	FindByNames(ctx context.Context, names []string) ([]models.Branch, error)
	List(ctx context.Context) ([]models.Branch, error)
	// Upsert inserts the branch or refreshes its tenant/store links.
	Upsert(ctx context.Context, b *models.Branch) error
	SetLastDeployed(ctx context.Context, name, commitID string) error
}

type branchRepository struct {
	BaseRepository[models.Branch]
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{BaseRepository: NewBaseRepository[models.Branch](db, "branch"), db: db}
}

func (r *branchRepository) GetByName(ctx context.Context, name string) (*models.Branch, error) {
	var b models.Branch
	if err := r.db.WithContext(ctx).Where("branch_name = ?", name).First(&b).Error; err != nil {
		return nil, appErr.FromDB(err, "branch not found", "get branch failed")
	}
	return &b, nil
}

func (r *branchRepository) FindByNames(ctx context.Context, names []string) ([]models.Branch, error) {
	var out []models.Branch
	if len(names) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).Where("branch_name IN ?", names).Order("branch_name").Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "find branches failed")
	}
	return out, nil
}

func (r *branchRepository) List(ctx context.Context) ([]models.Branch, error) {
	var out []models.Branch
	if err := r.db.WithContext(ctx).Order("branch_name").Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "list branches failed")
	}
	return out, nil
}

func (r *branchRepository) Upsert(ctx context.Context, b *models.Branch) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "branch_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "store_id", "updated_at"}),
	}).Create(b).Error
	return appErr.FromDB(err, "", "upsert branch failed")
}

func (r *branchRepository) SetLastDeployed(ctx context.Context, name, commitID string) error {
	res := r.db.WithContext(ctx).Model(&models.Branch{}).
		Where("branch_name = ?", name).
		Update("last_deployed_commit_id", commitID)
	if res.Error != nil {
		return appErr.FromDB(res.Error, "", "update branch failed")
	}
	if res.RowsAffected == 0 {
		return appErr.NotFound("branch not found")
	}
	return nil
}
