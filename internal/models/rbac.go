package models

import (
	"time"

	"gorm.io/gorm"
)

// Permission is a global catalog entry for one grantable capability,
// identified by a stable key such as "roles:create". The catalog is seeded
// at startup and changes rarely.
type Permission struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Key         string `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Description string `gorm:"size:300" json:"description"`
	Category    string `gorm:"size:50;index" json:"category"`
}

func (Permission) TableName() string { return "permissions" }

// ChurchRole is a role scoped to one church. System roles are seeded with
// the church and cannot be renamed or deleted.
type ChurchRole struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ChurchID     uint           `gorm:"uniqueIndex:idx_church_role_name;not null" json:"church_id"`
	Name         string         `gorm:"uniqueIndex:idx_church_role_name;size:100;not null" json:"name"`
	Description  string         `gorm:"size:300" json:"description"`
	IsSystemRole bool           `gorm:"default:false" json:"is_system_role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Permission keys are fetched and replaced wholesale on edit.
	PermissionKeys []string `gorm:"-" json:"permission_keys,omitempty"`
}

func (ChurchRole) TableName() string { return "church_roles" }

// RolePermission associates one permission key with a role.
type RolePermission struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	RoleID        uint   `gorm:"uniqueIndex:idx_role_perm;not null" json:"role_id"`
	PermissionKey string `gorm:"uniqueIndex:idx_role_perm;size:100;not null" json:"permission_key"`
}

func (RolePermission) TableName() string { return "church_role_permissions" }

// UserChurchRole assigns a church role to a user.
type UserChurchRole struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	UserID     uint        `gorm:"uniqueIndex:idx_user_role;not null" json:"user_id"`
	ChurchID   uint        `gorm:"index;not null" json:"church_id"`
	RoleID     uint        `gorm:"uniqueIndex:idx_user_role;not null" json:"role_id"`
	Role       *ChurchRole `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	AssignedBy *uint       `json:"assigned_by"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (UserChurchRole) TableName() string { return "user_church_roles" }
