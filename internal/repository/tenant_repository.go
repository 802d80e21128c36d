package repository

import (
	"context"

	"github.com/brandhub/deploycenter/internal/models"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"gorm.io/gorm"
)

// TenantRepository reads the tenant/store registry that branches mirror.
type TenantRepository interface {
	BaseRepository[models.Tenant]
	ListActive(ctx context.Context) ([]models.Tenant, error)
	ListActiveStores(ctx context.Context) ([]models.Store, error)
}

type tenantRepository struct {
	BaseRepository[models.Tenant]
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{BaseRepository: NewBaseRepository[models.Tenant](db, "tenant"), db: db}
}

func (r *tenantRepository) ListActive(ctx context.Context) ([]models.Tenant, error) {
	var out []models.Tenant
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("slug").Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "list tenants failed")
	}
	return out, nil
}

func (r *tenantRepository) ListActiveStores(ctx context.Context) ([]models.Store, error) {
	var out []models.Store
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("tenant_id, code").Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", "list stores failed")
	}
	return out, nil
}
