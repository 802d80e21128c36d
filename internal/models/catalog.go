package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Supplier is a canonical brand-managed supplier, or a tenant's copy of one.
type Supplier struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_suppliers_tenant_code,unique" json:"tenantId"`
	Code             string            `gorm:"type:varchar(64);not null;index:idx_suppliers_tenant_code,unique" json:"code" validate:"required"`
	Name             string            `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	TaxID            string            `gorm:"type:varchar(32)" json:"taxId,omitempty"`
	Email            string            `gorm:"type:varchar(255)" json:"email,omitempty" validate:"omitempty,email"`
	Phone            string            `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Attributes       datatypes.JSONMap `gorm:"type:jsonb" json:"attributes,omitempty"`
	DeploymentStatus string            `gorm:"type:varchar(16)" json:"deploymentStatus,omitempty"`
	DeployedToCount  int               `gorm:"not null;default:0" json:"deployedToCount"`
	LastDeployedAt   *time.Time        `json:"lastDeployedAt,omitempty"`
	SourceSupplierID *uuid.UUID        `gorm:"type:uuid;index" json:"sourceSupplierId,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt    `gorm:"index" json:"-"`
}

// Product is a canonical catalog entry.
type Product struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_products_tenant_sku,unique" json:"tenantId"`
	SKU        string            `gorm:"type:varchar(64);not null;index:idx_products_tenant_sku,unique" json:"sku" validate:"required"`
	Name       string            `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	CategoryID *uuid.UUID        `gorm:"type:uuid;index" json:"categoryId,omitempty"`
	PriceCents int64             `gorm:"not null;default:0" json:"priceCents" validate:"gte=0"`
	Currency   string            `gorm:"type:char(3)" json:"currency,omitempty" validate:"omitempty,len=3"`
	Attributes datatypes.JSONMap `gorm:"type:jsonb" json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt    `gorm:"index" json:"-"`
}

// Category groups products.
type Category struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_categories_tenant_code,unique" json:"tenantId"`
	Code      string         `gorm:"type:varchar(64);not null;index:idx_categories_tenant_code,unique" json:"code" validate:"required"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	ParentID  *uuid.UUID     `gorm:"type:uuid;index" json:"parentId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
