package models

import "time"

// UserSetting is one per-user preference entry.
type UserSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_setting_key;not null" json:"user_id"`
	Key       string    `gorm:"uniqueIndex:idx_user_setting_key;size:100;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:20;default:string" json:"type"` // string, int, bool, json
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserSetting) TableName() string { return "user_settings" }
