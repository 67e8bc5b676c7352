package models

import "time"

// DeleteLog records a listing removed through the dashboard
type DeleteLog struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID       string    `gorm:"type:varchar(32);not null;index" json:"listing_id"`
	Name            string    `gorm:"type:text" json:"name"`
	Link            string    `gorm:"type:text" json:"link"`
	DeletedBy       string    `gorm:"type:varchar(100)" json:"deleted_by"`
	PicturesRemoved int       `gorm:"not null;default:0" json:"pictures_removed"`
	DeletedAt       time.Time `gorm:"type:datetime;not null;index" json:"deleted_at"`
	Reason          string    `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonManual   = "manual_deletion"
	DeleteReasonVanished = "vanished_from_api"
)
