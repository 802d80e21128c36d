package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Tenant is an independently owned customer of the brand.
type Tenant struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Slug           string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug" validate:"required"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	WebhookBaseURL string    `gorm:"type:varchar(512)" json:"webhookBaseUrl,omitempty"`
	Active         bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store is a sub-unit (point of sale) of a tenant.
type Store struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index:idx_stores_tenant_code,unique" json:"tenantId"`
	Code      string    `gorm:"type:varchar(64);not null;index:idx_stores_tenant_code,unique" json:"code"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Branch is a deployment target: "<tenant-slug>" or "<tenant-slug>/<store-code>".
type Branch struct {
	ID                   uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BranchName           string            `gorm:"type:varchar(160);uniqueIndex;not null" json:"branchName"`
	TenantID             *uuid.UUID        `gorm:"type:uuid;index" json:"tenantId"`
	StoreID              *uuid.UUID        `gorm:"type:uuid;index" json:"storeId,omitempty"`
	LastDeployedCommitID *string           `gorm:"type:varchar(128)" json:"lastDeployedCommitId,omitempty"`
	Metadata             datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

func (Branch) TableName() string { return "deploy_branches" }

// TenantBranchName returns the branch name of a tenant-level target.
func TenantBranchName(slug string) string { return slug }

// StoreBranchName returns the branch name of a store-level target.
func StoreBranchName(slug, storeCode string) string { return slug + "/" + storeCode }
