package models

import (
	"time"

	"gorm.io/datatypes"
)

type CommitStatus string

const (
	CommitReady     CommitStatus = "ready"
	CommitDeploying CommitStatus = "deploying"
	CommitDeployed  CommitStatus = "deployed"
	CommitFailed    CommitStatus = "failed"
	CommitArchived  CommitStatus = "archived"
)

// Tools are the downstream systems a commit can target.
var Tools = []string{"crm", "wms", "pos", "analytics", "hr", "erp"}

// Commit is an immutable snapshot of one canonical resource at one version.
type Commit struct {
	ID           string            `gorm:"type:varchar(128);primaryKey" json:"id"`
	Tool         string            `gorm:"type:varchar(32);index:idx_commits_tool_created;not null" json:"tool" validate:"required,oneof=crm wms pos analytics hr erp"`
	ResourceType string            `gorm:"type:varchar(32);index;not null" json:"resourceType" validate:"required"`
	ResourceID   string            `gorm:"type:varchar(128);index" json:"resourceId"`
	Name         string            `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Version      string            `gorm:"type:varchar(64);not null" json:"version" validate:"required"`
	Status       CommitStatus      `gorm:"type:varchar(16);index;not null;default:ready" json:"status"`
	Payload      datatypes.JSON    `gorm:"type:jsonb;not null" json:"payload"`
	Checksum     string            `gorm:"type:char(64)" json:"checksum"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedBy    string            `gorm:"type:varchar(128)" json:"createdBy"`
	CreatedAt    time.Time         `gorm:"index:idx_commits_tool_created" json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	DeployedAt   *time.Time        `json:"deployedAt,omitempty"`
	ArchivedAt   *time.Time        `json:"archivedAt,omitempty"`
}

func (Commit) TableName() string { return "deploy_commits" }
