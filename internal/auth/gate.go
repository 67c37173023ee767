package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"userhub/internal/cache"
	"userhub/internal/model"
	"userhub/internal/repository"
)

const (
	rolePermsKeyPrefix = "role_perms:"
	rolePermsCacheTTL  = 5 * time.Minute
)

// Gate answers the per-route authorization question: may this user perform
// (resource, action)? Role permission sets are cached in Redis; a cache
// outage degrades to a repository read.
type Gate struct {
	roles repository.RoleRepository
	cache *cache.Client
}

// NewGate creates an authorization gate.
func NewGate(roles repository.RoleRepository, cache *cache.Client) *Gate {
	return &Gate{roles: roles, cache: cache}
}

func rolePermsKey(roleID uint) string {
	return fmt.Sprintf("%s%d", rolePermsKeyPrefix, roleID)
}

// Can reports whether any of the user's roles carries a permission matching
// (resource, action).
func (g *Gate) Can(ctx context.Context, user *model.User, resource, action string) (bool, error) {
	want := resource + ":" + action
	for _, role := range user.Roles {
		pairs, err := g.rolePermissionPairs(ctx, role)
		if err != nil {
			return false, err
		}
		for _, pair := range pairs {
			if pair == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// InvalidateRole drops the cached permission set for a role. Called after
// any role mutation.
func (g *Gate) InvalidateRole(ctx context.Context, roleID uint) {
	_ = g.cache.Delete(ctx, rolePermsKey(roleID))
}

// rolePermissionPairs resolves a role to its "resource:action" pairs,
// preferring already-hydrated permissions, then cache, then the store.
func (g *Gate) rolePermissionPairs(ctx context.Context, role model.Role) ([]string, error) {
	if len(role.Permissions) > 0 {
		return permissionPairs(role.Permissions), nil
	}

	key := rolePermsKey(role.ID)
	if data, _ := g.cache.Get(ctx, key); data != nil {
		var cached []string
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	full, err := g.roles.FindByID(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("load role %d: %w", role.ID, err)
	}
	pairs := permissionPairs(full.Permissions)

	if payload, err := json.Marshal(pairs); err == nil {
		_ = g.cache.Set(ctx, key, payload, rolePermsCacheTTL)
	}
	return pairs, nil
}

func permissionPairs(perms []model.Permission) []string {
	pairs := make([]string, 0, len(perms))
	for _, p := range perms {
		pairs = append(pairs, p.Resource+":"+p.Action)
	}
	return pairs
}
