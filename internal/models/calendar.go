package models

import (
	"time"

	"gorm.io/gorm"
)

// Attendance states for calendar event members.
const (
	AttendanceInvited  = "invited"
	AttendanceGoing    = "going"
	AttendanceDeclined = "declined"
)

// TeamCalendarEvent is a scheduled team event (rehearsal, service, meeting).
type TeamCalendarEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TeamID      uint           `gorm:"index;not null" json:"team_id"`
	Team        *Team          `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"size:1000" json:"description"`
	Location    string         `gorm:"size:300" json:"location"`
	StartsAt    time.Time      `gorm:"index;not null" json:"starts_at"`
	EndsAt      time.Time      `json:"ends_at"`
	CreatedBy   uint           `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Computed on read, not stored: whether the event falls on a business day.
	IsBusinessDay bool `gorm:"-" json:"is_business_day"`
}

func (TeamCalendarEvent) TableName() string { return "team_calendar_events" }

// TeamCalendarEventMember is an attendee record for one event.
type TeamCalendarEventMember struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	EventID   uint               `gorm:"uniqueIndex:idx_event_user;not null" json:"event_id"`
	Event     *TeamCalendarEvent `gorm:"foreignKey:EventID" json:"event,omitempty"`
	UserID    uint               `gorm:"uniqueIndex:idx_event_user;not null" json:"user_id"`
	Status    string             `gorm:"size:16;default:invited" json:"status"` // invited, going, declined
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (TeamCalendarEventMember) TableName() string { return "team_calendar_event_members" }
