package models

import (
	"time"
)

// Membership request lifecycle states. Pending is the only non-terminal
// state; accepted, declined and cancelled are immutable once set.
const (
	RequestStatusPending   = "pending"
	RequestStatusAccepted  = "accepted"
	RequestStatusDeclined  = "declined"
	RequestStatusCancelled = "cancelled"
)

// MembershipRequest is a user's application to join a church.
//
// At most one pending request may exist per (user, church) pair. The
// invariant is enforced inside the create transaction; callers receive
// DATABASE_CONFLICT when it is violated, which the UI treats as
// "already applied".
type MembershipRequest struct {
	ID         uint       `gorm:"primaryKey" json:"-"`
	RequestID  string     `gorm:"uniqueIndex;size:36;not null" json:"id"` // opaque public identifier
	ChurchID   uint       `gorm:"index:idx_request_user_church;not null" json:"church_id"`
	Church     *Church    `gorm:"foreignKey:ChurchID" json:"church,omitempty"`
	UserID     uint       `gorm:"index:idx_request_user_church;not null" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status     string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	Message    string     `gorm:"size:500" json:"message"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	ReviewedBy *uint      `json:"reviewed_by"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (MembershipRequest) TableName() string { return "church_membership_requests" }

// IsTerminal reports whether the request reached an immutable state.
func (r *MembershipRequest) IsTerminal() bool {
	return r.Status != RequestStatusPending
}

// OwnerID returns the requesting user's id.
func (r *MembershipRequest) OwnerID() uint { return r.UserID }

// SetOwnerID stamps the requesting user's id.
func (r *MembershipRequest) SetOwnerID(id uint) { r.UserID = id }
