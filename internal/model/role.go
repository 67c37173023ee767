package model

import "time"

// Role is a named bundle of permissions assignable to users.
type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Description string    `json:"description" gorm:"size:255"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions;"`
}

// RoleSuperAdmin is the role that must never lose its last holder.
const RoleSuperAdmin = "Super Administrator"

// Default role names seeded at first boot.
const (
	RoleAdmin     = "Administrator"
	RoleModerator = "Moderator"
	RoleUser      = "User"
)

// Grants reports whether the role carries a permission for (resource, action).
func (r *Role) Grants(resource, action string) bool {
	for _, p := range r.Permissions {
		if p.Resource == resource && p.Action == action {
			return true
		}
	}
	return false
}
