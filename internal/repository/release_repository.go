package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivateRelease makes CommitID the active commit of (BranchName, Tool).
type ActivateRelease struct {
	BranchName          string
	Tool                string
	CommitID            string
	Version             string
	DeploymentSessionID *uuid.UUID
	At                  time.Time
	// ExpectedReleaseVersion, when set, must equal the current release
	// version (0 for a pair that has never been released).
	ExpectedReleaseVersion *int64
}

type ReleaseFilter struct {
	BranchName string
	Tool       string
}

type ReleaseRepository interface {
	Activate(ctx context.Context, in ActivateRelease) (*models.Release, error)
	Get(ctx context.Context, branchName, tool string) (*models.Release, error)
	List(ctx context.Context, f ReleaseFilter) ([]models.Release, error)
}

type releaseRepository struct {
	db *gorm.DB
}

func NewReleaseRepository(db *gorm.DB) ReleaseRepository {
	return &releaseRepository{db: db}
}

// Activate locks the (branch, tool) row for the duration of the update, so
// concurrent activations serialize and each one bumps ReleaseVersion.
func (r *releaseRepository) Activate(ctx context.Context, in ActivateRelease) (*models.Release, error) {
	var out models.Release
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			var cur models.Release
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("branch_name = ? AND tool = ?", in.BranchName, in.Tool).
				First(&cur).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := checkReleaseVersion(in.ExpectedReleaseVersion, 0); err != nil {
					return err
				}
				out = models.Release{
					ID:                  uuid.New(),
					BranchName:          in.BranchName,
					Tool:                in.Tool,
					CommitID:            in.CommitID,
					Version:             in.Version,
					DeploymentSessionID: in.DeploymentSessionID,
					ReleaseVersion:      1,
					ActivatedAt:         in.At,
				}
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&out)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 1 {
					return nil
				}
				// Lost the insert race; lock the winner's row and update it.
				continue
			}
			if err != nil {
				return err
			}

			if err := checkReleaseVersion(in.ExpectedReleaseVersion, cur.ReleaseVersion); err != nil {
				return err
			}
			if cur.CommitID != in.CommitID {
				prevID, prevVersion := cur.CommitID, cur.Version
				cur.PreviousCommitID = &prevID
				cur.PreviousVersion = &prevVersion
			}
			cur.CommitID = in.CommitID
			cur.Version = in.Version
			cur.DeploymentSessionID = in.DeploymentSessionID
			cur.ActivatedAt = in.At
			cur.ReleaseVersion++
			if err := tx.Save(&cur).Error; err != nil {
				return err
			}
			out = cur
			return nil
		}
	})
	if err != nil {
		return nil, appErr.FromDB(err, "", "activate release failed")
	}
	return &out, nil
}

func checkReleaseVersion(expected *int64, actual int64) error {
	if expected == nil || *expected == actual {
		return nil
	}
	return appErr.New(appErr.CodeConflict, fmt.Sprintf("release version is %d, expected %d", actual, *expected)).
		WithMeta("releaseVersion", actual)
}

func (r *releaseRepository) Get(ctx context.Context, branchName, tool string) (*models.Release, error) {
	var rel models.Release
	err := r.db.WithContext(ctx).Where("branch_name = ? AND tool = ?", branchName, tool).First(&rel).Error
	if err != nil {
		return nil, appErr.FromDB(err, fmt.Sprintf("no %s release on branch %s", tool, branchName), "get release failed")
	}
	return &rel, nil
}

func (r *releaseRepository) List(ctx context.Context, f ReleaseFilter) ([]models.Release, error) {
	q := r.db.WithContext(ctx).Model(&models.Release{})
	if f.BranchName != "" {
		q = q.Where("branch_name = ?", f.BranchName)
	}
	if f.Tool != "" {
		q = q.Where("tool = ?", f.Tool)
	}
	var out []models.Release
	if err := q.Order("branch_name, tool").Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "list releases failed")
	}
	return out, nil
}
