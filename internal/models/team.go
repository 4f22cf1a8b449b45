package models

import (
	"time"

	"gorm.io/gorm"
)

// Team is a ministry team within a church (worship, youth, outreach...).
type Team struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ChurchID    uint           `gorm:"index;not null" json:"church_id"`
	Church      *Church        `gorm:"foreignKey:ChurchID" json:"church,omitempty"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	Description string         `gorm:"size:500" json:"description"`
	CreatedBy   uint           `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Team) TableName() string { return "teams" }

// Team member roles.
const (
	TeamRoleAdmin  = "admin"
	TeamRoleMember = "member"
)

// TeamMember represents a user's membership and role within a team.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"uniqueIndex:idx_team_user;not null" json:"team_id"`
	Team      *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_team_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:50;default:member" json:"role"` // admin, member
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamMember) TableName() string { return "team_members" }

// TeamGroup optionally partitions a team (e.g. vocals / band within worship).
type TeamGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"uniqueIndex:idx_team_group_name;not null" json:"team_id"`
	Name      string    `gorm:"uniqueIndex:idx_team_group_name;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamGroup) TableName() string { return "team_groups" }

// TeamGroupMember places a team member into a group. A member belongs to at
// most one group per team.
type TeamGroupMember struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	GroupID   uint       `gorm:"index;not null" json:"group_id"`
	Group     *TeamGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
}

func (TeamGroupMember) TableName() string { return "team_group_members" }
