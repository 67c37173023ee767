package bootstrap

import (
	"context"
	"fmt"
	"log"

	"userhub/internal/auth"
	"userhub/internal/model"
	"userhub/internal/repository"
)

// Seed populates permissions, roles, and default users, in that order.
// Each step is skipped when its table already has rows, so the routine is
// safe to run on every boot.
func Seed(ctx context.Context, repos repository.Manager, hasher *auth.PasswordHasher) error {
	if err := seedPermissions(ctx, repos); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	if err := seedRoles(ctx, repos); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := seedUsers(ctx, repos, hasher); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	return nil
}

func seedPermissions(ctx context.Context, repos repository.Manager) error {
	count, err := repos.Permissions().Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	perms := make([]model.Permission, 0, 8)
	for _, resource := range []string{model.ResourceUser, model.ResourceRole} {
		for _, action := range []string{model.ActionCreate, model.ActionRead, model.ActionUpdate, model.ActionDelete} {
			perms = append(perms, model.Permission{Resource: resource, Action: action})
		}
	}
	if err := repos.Permissions().CreateBatch(ctx, perms); err != nil {
		return err
	}
	log.Printf("bootstrap: seeded %d permissions", len(perms))
	return nil
}

func seedRoles(ctx context.Context, repos repository.Manager) error {
	count, err := repos.Roles().Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	all, err := repos.Permissions().List(ctx)
	if err != nil {
		return err
	}
	userPerms, err := repos.Permissions().FindByResource(ctx, model.ResourceUser)
	if err != nil {
		return err
	}
	moderatorPerms := make([]model.Permission, 0, len(userPerms))
	for _, p := range userPerms {
		if p.Action != model.ActionDelete {
			moderatorPerms = append(moderatorPerms, p)
		}
	}

	roles := []model.Role{
		{Name: model.RoleSuperAdmin, Description: "Full access to every resource", Permissions: all},
		{Name: model.RoleAdmin, Description: "Manages users", Permissions: userPerms},
		{Name: model.RoleModerator, Description: "Manages users except deletion", Permissions: moderatorPerms},
		{Name: model.RoleUser, Description: "Default role", Permissions: []model.Permission{}},
	}
	for i := range roles {
		if err := repos.Roles().Create(ctx, &roles[i]); err != nil {
			return err
		}
	}
	log.Printf("bootstrap: seeded %d roles", len(roles))
	return nil
}

func seedUsers(ctx context.Context, repos repository.Manager, hasher *auth.PasswordHasher) error {
	count, err := repos.Users().Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	roleByName := func(name string) (model.Role, error) {
		role, err := repos.Roles().FindByName(ctx, name)
		if err != nil {
			return model.Role{}, err
		}
		return *role, nil
	}
	superAdmin, err := roleByName(model.RoleSuperAdmin)
	if err != nil {
		return err
	}
	admin, err := roleByName(model.RoleAdmin)
	if err != nil {
		return err
	}
	moderator, err := roleByName(model.RoleModerator)
	if err != nil {
		return err
	}
	defaultRole, err := roleByName(model.RoleUser)
	if err != nil {
		return err
	}

	defaults := []struct {
		firstName string
		lastName  string
		userName  string
		email     string
		password  string
		roles     []model.Role
	}{
		{"Super", "Admin", "superadmin", "superadmin@example.com", "superadmin", []model.Role{superAdmin, admin, moderator, defaultRole}},
		{"Site", "Admin", "admin", "admin@example.com", "admin", []model.Role{admin}},
		{"Site", "Moderator", "moderator", "moderator@example.com", "moderator", []model.Role{moderator}},
		{"Plain", "User", "user", "user@example.com", "user", []model.Role{defaultRole}},
	}

	for _, d := range defaults {
		hash, err := hasher.Hash(d.password)
		if err != nil {
			return err
		}
		user := &model.User{
			FirstName:    d.firstName,
			LastName:     d.lastName,
			UserName:     d.userName,
			Email:        d.email,
			PasswordHash: hash,
			Confirmed:    true,
			Roles:        d.roles,
		}
		if err := repos.Users().Create(ctx, user); err != nil {
			return err
		}
	}
	log.Printf("bootstrap: seeded %d default users", len(defaults))
	return nil
}
