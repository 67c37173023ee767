package model

import "time"

// Permission is an atomic (resource, action) capability.
type Permission struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Resource  string    `json:"resource" gorm:"uniqueIndex:idx_resource_action;size:100;not null"`
	Action    string    `json:"action" gorm:"uniqueIndex:idx_resource_action;size:100;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resources the permission system recognizes.
const (
	ResourceUser = "user"
	ResourceRole = "role"
)

// Actions the permission system recognizes.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)
