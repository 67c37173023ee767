package repository

import (
	"context"

	"gorm.io/gorm"

	"userhub/internal/model"
)

// PermissionRepository defines permission persistence operations. The
// permission set is seeded once and effectively read-only afterwards.
type PermissionRepository interface {
	CreateBatch(ctx context.Context, perms []model.Permission) error
	FindByIDs(ctx context.Context, ids []uint) ([]model.Permission, error)
	FindByResource(ctx context.Context, resource string) ([]model.Permission, error)
	List(ctx context.Context) ([]model.Permission, error)
	Count(ctx context.Context) (int64, error)
}

type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository builds a GORM-backed permission repository.
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) CreateBatch(ctx context.Context, perms []model.Permission) error {
	return r.db.WithContext(ctx).Create(&perms).Error
}

func (r *permissionRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Permission, error) {
	var perms []model.Permission
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) FindByResource(ctx context.Context, resource string) ([]model.Permission, error) {
	var perms []model.Permission
	if err := r.db.WithContext(ctx).Where("resource = ?", resource).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) List(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := r.db.WithContext(ctx).Order("resource, action").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Permission{}).Count(&count).Error
	return count, err
}
