package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"userhub/internal/auth"
	"userhub/internal/errors"
	"userhub/internal/model"
	"userhub/internal/repository"
)

// RoleInput carries the fields for creating or updating a role.
type RoleInput struct {
	Name          string
	Description   string
	PermissionIDs []uint
}

// RoleService exposes role and permission management.
type RoleService interface {
	CreateRole(ctx context.Context, in RoleInput) (*model.Role, error)
	GetRole(ctx context.Context, id uint) (*model.Role, error)
	ListRoles(ctx context.Context, opts repository.ListOptions) ([]model.Role, int64, error)
	UpdateRole(ctx context.Context, id uint, in RoleInput) (*model.Role, error)
	DeleteRole(ctx context.Context, id uint) error
	ListPermissions(ctx context.Context) ([]model.Permission, error)
}

type roleService struct {
	repos repository.Manager
	gate  *auth.Gate
}

// NewRoleService builds a RoleService. Role mutations invalidate the
// gate's cached permission sets.
func NewRoleService(repos repository.Manager, gate *auth.Gate) RoleService {
	return &roleService{repos: repos, gate: gate}
}

func (s *roleService) CreateRole(ctx context.Context, in RoleInput) (*model.Role, error) {
	perms, err := s.resolvePermissions(ctx, in.PermissionIDs)
	if err != nil {
		return nil, err
	}

	role := &model.Role{
		Name:        in.Name,
		Description: in.Description,
		Permissions: perms,
	}
	if err := s.repos.Roles().Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (s *roleService) GetRole(ctx context.Context, id uint) (*model.Role, error) {
	role, err := s.repos.Roles().FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (s *roleService) ListRoles(ctx context.Context, opts repository.ListOptions) ([]model.Role, int64, error) {
	return s.repos.Roles().List(ctx, opts)
}

func (s *roleService) UpdateRole(ctx context.Context, id uint, in RoleInput) (*model.Role, error) {
	role, err := s.repos.Roles().FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrRoleNotFound
		}
		return nil, err
	}

	perms, err := s.resolvePermissions(ctx, in.PermissionIDs)
	if err != nil {
		return nil, err
	}

	role.Name = in.Name
	role.Description = in.Description
	if err := s.repos.Roles().ReplacePermissions(ctx, role, perms); err != nil {
		return nil, fmt.Errorf("replace permissions: %w", err)
	}
	role.Permissions = perms
	if err := s.repos.Roles().Update(ctx, role); err != nil {
		return nil, fmt.Errorf("save role: %w", err)
	}

	s.gate.InvalidateRole(ctx, role.ID)
	return role, nil
}

func (s *roleService) DeleteRole(ctx context.Context, id uint) error {
	if _, err := s.repos.Roles().FindByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrRoleNotFound
		}
		return err
	}
	if err := s.repos.Roles().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	s.gate.InvalidateRole(ctx, id)
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return s.repos.Permissions().List(ctx)
}

func (s *roleService) resolvePermissions(ctx context.Context, ids []uint) ([]model.Permission, error) {
	if len(ids) == 0 {
		return []model.Permission{}, nil
	}
	perms, err := s.repos.Permissions().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	if len(perms) != len(ids) {
		return nil, errors.ErrPermissionNotFound
	}
	return perms, nil
}
