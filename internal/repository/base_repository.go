package repository

import (
	"context"
	"fmt"

	appErr "github.com/brandhub/deploycenter/pkg/errors"
	"gorm.io/gorm"
)

// BaseRepository defines common CRUD operations.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id any, dest *T) error
	Update(ctx context.Context, obj *T) error
	Delete(ctx context.Context, id any) error
}

type baseRepository[T any] struct {
	db     *gorm.DB
	entity string
}

// NewBaseRepository returns CRUD over T. entity names the row kind in errors.
func NewBaseRepository[T any](db *gorm.DB, entity string) BaseRepository[T] {
	return &baseRepository[T]{db: db, entity: entity}
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	return appErr.FromDB(r.db.WithContext(ctx).Create(obj).Error, "", "create "+r.entity+" failed")
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error
	return appErr.FromDB(err, r.entity+" not found", "get "+r.entity+" failed")
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T) error {
	return appErr.FromDB(r.db.WithContext(ctx).Save(obj).Error, "", "update "+r.entity+" failed")
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, "id = ?", id)
	if res.Error != nil {
		return appErr.FromDB(res.Error, "", "delete "+r.entity+" failed")
	}
	if res.RowsAffected == 0 {
		return appErr.NotFound(fmt.Sprintf("%s %v not found", r.entity, id))
	}
	return nil
}
