package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeploymentStatus is the per (deployment, branch) execution record kept for
// history and gap display, independent of session grouping.
type DeploymentStatus struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DeploymentID        string         `gorm:"column:commit_id;type:varchar(128);not null;index:idx_deploy_status_commit_branch,unique" json:"deploymentId"`
	BranchName          string         `gorm:"type:varchar(160);not null;index:idx_deploy_status_commit_branch,unique" json:"branchName"`
	BranchID            *uuid.UUID     `gorm:"type:uuid;index" json:"branchId,omitempty"`
	Tool                string         `gorm:"type:varchar(32);index" json:"tool"`
	DeploymentSessionID *uuid.UUID     `gorm:"type:uuid;index" json:"deploymentSessionId,omitempty"`
	Status              string         `gorm:"type:varchar(16);index;not null" json:"status"`
	AttemptCount        int            `gorm:"not null;default:0" json:"attemptCount"`
	LastAttemptAt       time.Time      `json:"lastAttemptAt"`
	WebhookResponse     datatypes.JSON `gorm:"type:jsonb" json:"webhookResponse,omitempty"`
	ErrorMessage        *string        `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

func (DeploymentStatus) TableName() string { return "deploy_statuses" }

const (
	DeployStatusDeployed = "deployed"
	DeployStatusFailed   = "failed"
)
