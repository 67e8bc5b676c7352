package models

import "time"

// ListingChange represents a difference detected between two refreshes
type ListingChange struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID       string    `gorm:"type:varchar(32);not null;index" json:"listing_id"`
	ChangeType      string    `gorm:"type:varchar(50);not null" json:"change_type"` // price_changed, status_changed, etc.
	OldValue        string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue        string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangeMagnitude *float64  `gorm:"type:decimal(12,2)" json:"change_magnitude,omitempty"` // For numerical changes
	DetectedAt      time.Time `gorm:"type:datetime;not null;index" json:"detected_at"`
}

// TableName specifies the table name
func (ListingChange) TableName() string {
	return "listing_changes"
}

// ChangeType constants
const (
	ChangeTypePrice    = "price_changed"
	ChangeTypeStatus   = "status_changed"
	ChangeTypeViewDate = "view_date_changed"
	ChangeTypeSpace    = "space_changed"
	ChangeTypeEnergy   = "energy_class_changed"
	ChangeTypePhoto    = "photo_changed"
	ChangeTypeNew      = "new_listing"
	ChangeTypeRemoved  = "listing_removed"
)
