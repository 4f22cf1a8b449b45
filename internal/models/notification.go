package models

import "time"

// Notification types written by the membership lifecycle.
const (
	NotificationRequestReceived = "membership_request_received"
	NotificationRequestAccepted = "membership_request_accepted"
	NotificationRequestDeclined = "membership_request_declined"
)

// Notification is an in-app notification row for one user.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Type      string     `gorm:"size:50;index" json:"type"`
	Title     string     `gorm:"size:200" json:"title"`
	Message   string     `gorm:"size:500" json:"message"`
	RefType   string     `gorm:"size:50" json:"ref_type"` // membership_request, team, ...
	RefID     string     `gorm:"size:36" json:"ref_id"`
	IsRead    bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
