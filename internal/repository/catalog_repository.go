package repository

import (
	"context"
	"errors"
	"time"

	"github.com/brandhub/deploycenter/internal/models"
	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SupplierRepository interface {
	BaseRepository[models.Supplier]
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Supplier, error)
	// UpsertForTenant updates the tenant's supplier with the same code, or
	// inserts one. It reports whether a row was created.
	UpsertForTenant(ctx context.Context, s *models.Supplier) (bool, error)
	UpdateRollup(ctx context.Context, id uuid.UUID, status string, deployedTo int, at *time.Time) error
}

type ProductRepository interface {
	BaseRepository[models.Product]
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error)
}

type CategoryRepository interface {
	BaseRepository[models.Category]
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Category, error)
}

type supplierRepository struct {
	BaseRepository[models.Supplier]
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) SupplierRepository {
	return &supplierRepository{BaseRepository: NewBaseRepository[models.Supplier](db, "supplier"), db: db}
}

func (r *supplierRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Supplier, error) {
	return listByTenant[models.Supplier](ctx, r.db, tenantID, "code", "list suppliers failed")
}

func (r *supplierRepository) UpsertForTenant(ctx context.Context, s *models.Supplier) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Supplier
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND code = ?", s.TenantID, s.Code).
			First(&cur).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			return tx.Create(s).Error
		case err != nil:
			return err
		}
		s.ID = cur.ID
		s.CreatedAt = cur.CreatedAt
		return tx.Model(&cur).Select("name", "tax_id", "email", "phone", "attributes", "source_supplier_id").Updates(s).Error
	})
	if err != nil {
		return false, appErr.FromDB(err, "", "upsert tenant supplier failed")
	}
	return created, nil
}

func (r *supplierRepository) UpdateRollup(ctx context.Context, id uuid.UUID, status string, deployedTo int, at *time.Time) error {
	updates := map[string]any{"deployment_status": status, "deployed_to_count": deployedTo}
	if at != nil {
		updates["last_deployed_at"] = *at
	}
	res := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return appErr.FromDB(res.Error, "", "update supplier rollup failed")
	}
	if res.RowsAffected == 0 {
		return appErr.NotFound("supplier not found")
	}
	return nil
}

type productRepository struct {
	BaseRepository[models.Product]
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{BaseRepository: NewBaseRepository[models.Product](db, "product"), db: db}
}

func (r *productRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	return listByTenant[models.Product](ctx, r.db, tenantID, "sku", "list products failed")
}

type categoryRepository struct {
	BaseRepository[models.Category]
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{BaseRepository: NewBaseRepository[models.Category](db, "category"), db: db}
}

func (r *categoryRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Category, error) {
	return listByTenant[models.Category](ctx, r.db, tenantID, "code", "list categories failed")
}

func listByTenant[T any](ctx context.Context, db *gorm.DB, tenantID uuid.UUID, order, msg string) ([]T, error) {
	var out []T
	if err := db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order(order).Find(&out).Error; err != nil {
		return nil, appErr.FromDB(err, "", msg)
	}
	return out, nil
}
