package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"userhub/internal/auth"
	"userhub/internal/cache"
	"userhub/internal/errors"
	"userhub/internal/model"
	"userhub/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// CreateUserInput carries the fields for an admin-created user.
type CreateUserInput struct {
	FirstName string
	LastName  string
	UserName  string
	Email     string
	Password  string
	RoleIDs   []uint
}

// UpdateUserInput carries optional fields for a user update. Nil means
// leave unchanged.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	UserName  *string
	Email     *string
	Password  *string
	Avatar    *string
	RoleIDs   *[]uint
}

// UserService exposes user management operations.
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, int64, error)
	UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type userService struct {
	repos  repository.Manager
	hasher *auth.PasswordHasher
	cache  *cache.Client
}

// NewUserService builds a UserService.
func NewUserService(repos repository.Manager, hasher *auth.PasswordHasher, cache *cache.Client) UserService {
	return &userService{repos: repos, hasher: hasher, cache: cache}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// CreateUser creates a user with an explicit role assignment. Falls back to
// the default role when none is given so no user ends up roleless.
func (s *userService) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	taken, err := s.repos.Users().UserNameExists(ctx, in.UserName, 0)
	if err != nil {
		return nil, fmt.Errorf("check user name: %w", err)
	}
	if taken {
		return nil, errors.ErrUserNameTaken
	}

	taken, err = s.repos.Users().EmailExists(ctx, in.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, errors.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
	}

	if len(in.RoleIDs) > 0 {
		roles, err := s.repos.Roles().FindByIDs(ctx, in.RoleIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve roles: %w", err)
		}
		if len(roles) != len(in.RoleIDs) {
			return nil, errors.ErrRoleNotFound
		}
		user.Roles = roles
	} else {
		role, err := s.repos.Roles().FindByName(ctx, model.RoleUser)
		switch {
		case err == nil:
			user.Roles = []model.Role{*role}
		case err != gorm.ErrRecordNotFound:
			return nil, fmt.Errorf("resolve default role: %w", err)
		}
	}

	if err := s.repos.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID with caching.
func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repos.Users().FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, int64, error) {
	return s.repos.Users().List(ctx, opts)
}

// UpdateUser applies a partial update. Role reassignment that would strip
// the Super Administrator role from its last holder is rejected inside the
// same transaction that performs the mutation.
func (s *userService) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*model.User, error) {
	var updated *model.User
	err := s.repos.RunInTx(ctx, func(ctx context.Context, txm repository.Manager) error {
		user, err := txm.Users().FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		if in.UserName != nil && *in.UserName != user.UserName {
			taken, err := txm.Users().UserNameExists(ctx, *in.UserName, user.ID)
			if err != nil {
				return fmt.Errorf("check user name: %w", err)
			}
			if taken {
				return errors.ErrUserNameTaken
			}
			user.UserName = *in.UserName
		}
		if in.Email != nil && *in.Email != user.Email {
			taken, err := txm.Users().EmailExists(ctx, *in.Email, user.ID)
			if err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if taken {
				return errors.ErrEmailTaken
			}
			user.Email = *in.Email
		}
		if in.FirstName != nil {
			user.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			user.LastName = *in.LastName
		}
		if in.Avatar != nil {
			user.Avatar = *in.Avatar
		}
		if in.Password != nil {
			hash, err := s.hasher.Hash(*in.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if in.RoleIDs != nil {
			roles, err := txm.Roles().FindByIDs(ctx, *in.RoleIDs)
			if err != nil {
				return fmt.Errorf("resolve roles: %w", err)
			}
			if len(roles) != len(*in.RoleIDs) {
				return errors.ErrRoleNotFound
			}
			if err := s.guardSuperAdminRemoval(ctx, txm, user, roles); err != nil {
				return err
			}
			if err := txm.Users().ReplaceRoles(ctx, user, roles); err != nil {
				return fmt.Errorf("replace roles: %w", err)
			}
			user.Roles = roles
		}

		if err := txm.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return updated, nil
}

// DeleteUser removes a user unless that would leave the system without a
// Super Administrator.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	err := s.repos.RunInTx(ctx, func(ctx context.Context, txm repository.Manager) error {
		user, err := txm.Users().FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		if err := s.guardSuperAdminRemoval(ctx, txm, user, nil); err != nil {
			return err
		}

		if err := txm.Tokens().DeleteRefreshTokensForUser(ctx, user.ID); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
		return txm.Users().Delete(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

// guardSuperAdminRemoval rejects a mutation that would strip the Super
// Administrator role from its sole holder. newRoles nil means the user is
// being deleted. Must run inside the transaction performing the mutation;
// the holder count takes row locks so concurrent demotions serialize.
func (s *userService) guardSuperAdminRemoval(ctx context.Context, txm repository.Manager, user *model.User, newRoles []model.Role) error {
	if !user.HasRole(model.RoleSuperAdmin) {
		return nil
	}
	for _, r := range newRoles {
		if r.Name == model.RoleSuperAdmin {
			return nil
		}
	}

	others, err := txm.Users().CountSuperAdminHolders(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("count super administrators: %w", err)
	}
	if others == 0 {
		return errors.ErrLastSuperAdmin
	}
	return nil
}
