package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

type CreateCommitRequest struct {
	ID           string          `json:"id"`
	Tool         string          `json:"tool" validate:"required"`
	ResourceType string          `json:"resourceType" validate:"required"`
	ResourceID   string          `json:"resourceId"`
	Name         string          `json:"name" validate:"required"`
	Version      string          `json:"version" validate:"required"`
	Payload      json.RawMessage `json:"payload" validate:"required"`
	Metadata     map[string]any  `json:"metadata"`
}

type CreateSessionRequest struct {
	SessionName    string   `json:"sessionName"`
	CommitIDs      []string `json:"commitIds"`
	TargetBranches []string `json:"targetBranches"`
	LaunchedBy     string   `json:"launchedBy"`
}

type LaunchSessionRequest struct {
	LaunchedBy string `json:"launchedBy"`
}

type PutReleaseRequest struct {
	BranchName             string     `json:"branchName" validate:"required"`
	Tool                   string     `json:"tool" validate:"required"`
	CommitID               string     `json:"commitId" validate:"required"`
	Version                string     `json:"version"`
	DeploymentSessionID    *uuid.UUID `json:"deploymentSessionId"`
	ExpectedReleaseVersion *int64     `json:"expectedReleaseVersion" validate:"omitempty,gte=0"`
}

type RollbackRequest struct {
	BranchName string `json:"branchName" validate:"required"`
	Tool       string `json:"tool" validate:"required"`
}

type CreateSupplierRequest struct {
	Code       string         `json:"code" validate:"required"`
	Name       string         `json:"name" validate:"required"`
	TaxID      string         `json:"taxId"`
	Email      string         `json:"email" validate:"omitempty,email"`
	Phone      string         `json:"phone"`
	Attributes map[string]any `json:"attributes"`
}

type CreateProductRequest struct {
	SKU        string         `json:"sku" validate:"required"`
	Name       string         `json:"name" validate:"required"`
	CategoryID *uuid.UUID     `json:"categoryId"`
	PriceCents int64          `json:"priceCents" validate:"gte=0"`
	Currency   string         `json:"currency" validate:"omitempty,len=3"`
	Attributes map[string]any `json:"attributes"`
}

type CreateCategoryRequest struct {
	Code     string     `json:"code" validate:"required"`
	Name     string     `json:"name" validate:"required"`
	ParentID *uuid.UUID `json:"parentId"`
}

type DeploySupplierRequest struct {
	BranchNames []string `json:"branchNames" validate:"required,min=1"`
}
