package repository

import (
	"context"

	"gorm.io/gorm"
)

// Manager aggregates the repositories over one database handle and runs
// multi-repository sequences inside a single transaction. Workflows that
// must not leave partial state visible (token rotation, password reset,
// role demotion with the super-admin guard) go through RunInTx.
type Manager interface {
	Users() UserRepository
	Roles() RoleRepository
	Permissions() PermissionRepository
	Tokens() TokenRepository
	RunInTx(ctx context.Context, fn func(ctx context.Context, m Manager) error) error
}

type manager struct {
	db          *gorm.DB
	users       UserRepository
	roles       RoleRepository
	permissions PermissionRepository
	tokens      TokenRepository
}

// NewManager builds a repository manager over a GORM handle.
func NewManager(db *gorm.DB) Manager {
	return &manager{
		db:          db,
		users:       NewUserRepository(db),
		roles:       NewRoleRepository(db),
		permissions: NewPermissionRepository(db),
		tokens:      NewTokenRepository(db),
	}
}

func (m *manager) Users() UserRepository              { return m.users }
func (m *manager) Roles() RoleRepository              { return m.roles }
func (m *manager) Permissions() PermissionRepository  { return m.permissions }
func (m *manager) Tokens() TokenRepository            { return m.tokens }

// RunInTx executes fn with a manager whose repositories share one
// transaction. Rolls back on error or panic.
func (m *manager) RunInTx(ctx context.Context, fn func(ctx context.Context, txm Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewManager(tx))
	})
}
