package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"userhub/internal/model"
)

// ListOptions controls pagination, filtering, and ordering of list queries.
type ListOptions struct {
	Page          int
	Limit         int
	SortBy        string
	SortDirection string
	Query         string // free-text filter
}

// Normalize clamps the options to their effective values: page floors at 1,
// limit falls back to 20 outside [1, 100], and sort direction defaults to
// descending. List queries and pagination responses both go through it so
// the bounds cannot drift apart.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 || o.Limit > 100 {
		o.Limit = 20
	}
	if o.SortDirection != "asc" && o.SortDirection != "desc" {
		o.SortDirection = "desc"
	}
	return o
}

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByUserName(ctx context.Context, userName string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UserNameExists(ctx context.Context, userName string, excludeID uint) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID uint) (bool, error)
	List(ctx context.Context, opts ListOptions) ([]model.User, int64, error)
	Count(ctx context.Context) (int64, error)
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
	MarkConfirmed(ctx context.Context, id uint) error
	ReplaceRoles(ctx context.Context, user *model.User, roles []model.Role) error
	CountSuperAdminHolders(ctx context.Context, excludeUserID uint) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	user := model.User{ID: id}
	if err := r.db.WithContext(ctx).Model(&user).Association("Roles").Clear(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&user).Error
}

// FindByID returns the user hydrated with roles and their permissions.
func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUserName(ctx context.Context, userName string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Where("user_name = ?", userName).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UserNameExists(ctx context.Context, userName string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.User{}).Where("user_name = ?", userName)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// user columns callers may sort by
var userSortColumns = map[string]string{
	"id":         "id",
	"user_name":  "user_name",
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
	"created_at": "created_at",
}

func (r *userRepository) List(ctx context.Context, opts ListOptions) ([]model.User, int64, error) {
	opts = opts.Normalize()

	q := r.db.WithContext(ctx).Model(&model.User{})
	if opts.Query != "" {
		pattern := "%" + strings.TrimSpace(opts.Query) + "%"
		q = q.Where(
			"user_name LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := userSortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}
	order := fmt.Sprintf("%s %s", column, opts.SortDirection)

	var users []model.User
	if err := q.Preload("Roles").
		Order(order).
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

func (r *userRepository) MarkConfirmed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("confirmed", true).Error
}

func (r *userRepository) ReplaceRoles(ctx context.Context, user *model.User, roles []model.Role) error {
	return r.db.WithContext(ctx).Model(user).Association("Roles").Replace(roles)
}

// CountSuperAdminHolders counts users other than excludeUserID holding the
// Super Administrator role. Rows are locked so the count stays valid for
// the duration of the surrounding transaction.
func (r *userRepository) CountSuperAdminHolders(ctx context.Context, excludeUserID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		Model(&model.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ? AND users.id <> ?", model.RoleSuperAdmin, excludeUserID).
		Count(&count).Error
	return count, err
}
