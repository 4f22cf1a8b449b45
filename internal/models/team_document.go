package models

import (
	"time"

	"gorm.io/gorm"
)

// TeamDocument is uploaded document metadata for a team. The file body lives
// in external storage addressed by StoragePath; this table only tracks it.
type TeamDocument struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	DocumentID  string         `gorm:"uniqueIndex;size:36;not null" json:"id"` // opaque public identifier
	TeamID      uint           `gorm:"index;not null" json:"team_id"`
	Team        *Team          `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	ContentType string         `gorm:"size:100" json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	StoragePath string         `gorm:"size:500" json:"-"`
	UploadedBy  uint           `json:"uploaded_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TeamDocument) TableName() string { return "team_documents" }
