package models

import (
	"strings"
	"time"
)

// Listing is a normalized ad as served by the ads API.
type Listing struct {
	// Identity
	ID   string `gorm:"type:varchar(32);primaryKey" json:"id"`
	Link string `gorm:"type:text" json:"link"`

	Name     string `gorm:"type:text" json:"name"`
	Location string `gorm:"type:varchar(255);index" json:"location"`

	// Numeric attributes, nil when the source did not provide a usable number
	Price   *float64 `gorm:"type:decimal(12,2)" json:"price"`
	Space   *float64 `gorm:"type:decimal(10,2)" json:"space"`
	Terrain *float64 `gorm:"type:decimal(10,2)" json:"terrain"`
	Rooms   *float64 `gorm:"type:decimal(5,1)" json:"rooms"`

	EnergyClass string `gorm:"type:varchar(10)" json:"energyClass"`
	FirstPhoto  string `gorm:"type:text" json:"firstPhoto"`
	Description string `gorm:"type:text" json:"description"`

	// Status is free text; SuggestedStatuses lists the usual tags.
	Status   string     `gorm:"type:varchar(100);index" json:"status"`
	ViewDate *time.Time `gorm:"type:datetime" json:"viewDate"`

	FetchedAt time.Time `gorm:"type:datetime;not null" json:"-"`
}

// TableName specifies the table name
func (Listing) TableName() string {
	return "listings"
}

// Status tags offered by the editor
const (
	StatusViewBooked = "View booked"
	StatusView       = "View"
	StatusOfferMade  = "Offer made"
)

// SuggestedStatuses is the ordered list of quick-pick status tags.
var SuggestedStatuses = []string{StatusViewBooked, StatusView, StatusOfferMade}

// City returns the last whitespace-delimited token of the location,
// "1234 AB Amsterdam" -> "Amsterdam".
func (l Listing) City() string {
	fields := strings.Fields(l.Location)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// HasViewing reports whether a viewing date is scheduled.
func (l Listing) HasViewing() bool {
	return l.ViewDate != nil
}
