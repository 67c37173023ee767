package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"userhub/internal/model"
)

// RoleRepository defines role persistence operations.
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Role, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	List(ctx context.Context, opts ListOptions) ([]model.Role, int64, error)
	Count(ctx context.Context) (int64, error)
	ReplacePermissions(ctx context.Context, role *model.Role, perms []model.Permission) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository builds a GORM-backed role repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Save(role).Error
}

func (r *roleRepository) Delete(ctx context.Context, id uint) error {
	role := model.Role{ID: id}
	if err := r.db.WithContext(ctx).Model(&role).Association("Permissions").Clear(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&role).Error
}

// FindByID returns the role hydrated with its permissions.
func (r *roleRepository) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).
		Preload("Permissions").
		First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Role, error) {
	var roles []model.Role
	if err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("id IN ?", ids).
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("name = ?", name).
		First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

var roleSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
}

func (r *roleRepository) List(ctx context.Context, opts ListOptions) ([]model.Role, int64, error) {
	opts = opts.Normalize()

	q := r.db.WithContext(ctx).Model(&model.Role{})
	if opts.Query != "" {
		q = q.Where("name LIKE ?", "%"+opts.Query+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := roleSortColumns[opts.SortBy]
	if !ok {
		column = "id"
	}

	var roles []model.Role
	if err := q.Preload("Permissions").
		Order(fmt.Sprintf("%s %s", column, opts.SortDirection)).
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&roles).Error; err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *roleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Role{}).Count(&count).Error
	return count, err
}

func (r *roleRepository) ReplacePermissions(ctx context.Context, role *model.Role, perms []model.Permission) error {
	return r.db.WithContext(ctx).Model(role).Association("Permissions").Replace(perms)
}
