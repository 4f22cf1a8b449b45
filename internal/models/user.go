package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered member account.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string         `gorm:"size:255" json:"-"` // bcrypt hash
	FullName  string         `gorm:"size:200" json:"full_name"`
	Avatar    string         `gorm:"size:500" json:"avatar"`
	ChurchID  *uint          `gorm:"index" json:"church_id"` // set when a membership request is accepted
	Church    *Church        `gorm:"foreignKey:ChurchID" json:"church,omitempty"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// UserSummary is the applicant view embedded in reviewer-side listings.
type UserSummary struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Summary returns the reduced applicant view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, FullName: u.FullName}
}
