package models

import (
	"time"

	"gorm.io/gorm"
)

// Church represents a registered congregation.
type Church struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:200;not null;index" json:"name"`
	Denomination string         `gorm:"size:100;index" json:"denomination"`
	Location     string         `gorm:"size:300" json:"location"`
	Description  string         `gorm:"type:text" json:"description"`
	CreatedBy    uint           `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Church) TableName() string { return "churches" }

// ChurchSummary is the denormalized church view embedded in request listings.
type ChurchSummary struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Denomination string `json:"denomination"`
	Location     string `json:"location"`
}

// Summary returns the reduced view of the church.
func (c *Church) Summary() ChurchSummary {
	return ChurchSummary{ID: c.ID, Name: c.Name, Denomination: c.Denomination, Location: c.Location}
}
