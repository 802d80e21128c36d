package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionPartial    SessionStatus = "partial"
	SessionFailed     SessionStatus = "failed"
	SessionCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether no further unit will change the session.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionCompleted, SessionPartial, SessionFailed, SessionCancelled:
		return true
	}
	return false
}

// DeploymentSession cross-multiplies a set of commits with a set of branches.
type DeploymentSession struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	SessionName       string                      `gorm:"type:varchar(255)" json:"sessionName"`
	CommitIDs         datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"commitIds"`
	TargetBranches    datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"targetBranches"`
	Status            SessionStatus               `gorm:"type:varchar(16);index;not null" json:"status"`
	TotalBranches     int                         `gorm:"not null" json:"totalBranches"`
	CompletedBranches int                         `gorm:"not null;default:0" json:"completedBranches"`
	FailedBranches    int                         `gorm:"not null;default:0" json:"failedBranches"`
	LaunchedBy        string                      `gorm:"type:varchar(128)" json:"launchedBy"`
	StartedAt         *time.Time                  `json:"startedAt,omitempty"`
	CompletedAt       *time.Time                  `json:"completedAt,omitempty"`
	CreatedAt         time.Time                   `json:"createdAt"`
	UpdatedAt         time.Time                   `json:"updatedAt"`
}

func (DeploymentSession) TableName() string { return "deploy_sessions" }

type UnitStatus string

const (
	UnitReady      UnitStatus = "ready"
	UnitInProgress UnitStatus = "in_progress"
	UnitDeployed   UnitStatus = "deployed"
	UnitFailed     UnitStatus = "failed"
)

// SessionCommit is one (session, commit, branch) unit of dispatch work.
type SessionCommit struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DeploymentSessionID uuid.UUID  `gorm:"type:uuid;not null;index:idx_session_units_triple,unique;index:idx_session_units_seq" json:"deploymentSessionId"`
	CommitID            string     `gorm:"type:varchar(128);not null;index:idx_session_units_triple,unique" json:"commitId"`
	TargetBranch        string     `gorm:"type:varchar(160);not null;index:idx_session_units_triple,unique" json:"targetBranch"`
	Seq                 int        `gorm:"not null;index:idx_session_units_seq" json:"seq"`
	Status              UnitStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	ErrorMessage        *string    `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (SessionCommit) TableName() string { return "deploy_session_commits" }

// FinalSessionStatus is the terminal status of a session whose units all finished.
func FinalSessionStatus(completed, failed int) SessionStatus {
	switch {
	case failed == 0:
		return SessionCompleted
	case completed == 0:
		return SessionFailed
	default:
		return SessionPartial
	}
}
