package models

import (
	"time"

	"github.com/google/uuid"
)

// Release is the currently active commit of one (branch, tool) pair.
type Release struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BranchName          string     `gorm:"type:varchar(160);not null;index:idx_releases_branch_tool,unique" json:"branchName"`
	Tool                string     `gorm:"type:varchar(32);not null;index:idx_releases_branch_tool,unique" json:"tool"`
	CommitID            string     `gorm:"type:varchar(128);not null" json:"commitId"`
	Version             string     `gorm:"type:varchar(64);not null" json:"version"`
	PreviousCommitID    *string    `gorm:"type:varchar(128)" json:"previousCommitId,omitempty"`
	PreviousVersion     *string    `gorm:"type:varchar(64)" json:"previousVersion,omitempty"`
	DeploymentSessionID *uuid.UUID `gorm:"type:uuid" json:"deploymentSessionId,omitempty"`
	ReleaseVersion      int64      `gorm:"not null;default:1" json:"releaseVersion"`
	ActivatedAt         time.Time  `json:"activatedAt"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (Release) TableName() string { return "deploy_releases" }
