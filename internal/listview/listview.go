// Package listview derives the filtered and sorted listing table from the
// store contents. Everything here is pure: inputs are never modified.
package listview

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/Fn-M/HousingManager/internal/models"
)

// Direction of a sort
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps user input to a direction, defaulting to ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort keys with dedicated comparators. Any other key compares the field's
// text case-insensitively.
const (
	KeyName        = "name"
	KeyLocation    = "location"
	KeyPrice       = "price"
	KeySpace       = "space"
	KeyTerrain     = "terrain"
	KeyRooms       = "rooms"
	KeyEnergyClass = "energyClass"
	KeyStatus      = "status"
	KeyViewDate    = "viewDate"
	KeyLink        = "link"
	KeyID          = "id"
)

// SortKeys lists every key the table can sort on.
var SortKeys = []string{
	KeyName, KeyLocation, KeyPrice, KeySpace, KeyTerrain, KeyRooms,
	KeyEnergyClass, KeyStatus, KeyViewDate, KeyLink, KeyID,
}

// IsSortable reports whether key is a known sort key.
func IsSortable(key string) bool {
	return slices.Contains(SortKeys, key)
}

// Sort is a sort directive; an empty Key keeps API order.
type Sort struct {
	Key       string
	Direction Direction
}

// Query holds every user-controlled input of the list view
type Query struct {
	Search    string
	Status    string
	Locations []string
	Sort      Sort
}

// Apply filters and sorts listings according to q. The result is a new slice.
func Apply(listings []models.Listing, q Query) []models.Listing {
	term := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if !matchesSearch(l, term) {
			continue
		}
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		if len(q.Locations) > 0 && !inLocations(l, q.Locations) {
			continue
		}
		out = append(out, l)
	}

	if q.Sort.Key != "" {
		compare := comparator(q.Sort.Key)
		if q.Sort.Direction == Desc {
			asc := compare
			compare = func(a, b models.Listing) int { return -asc(a, b) }
		}
		slices.SortStableFunc(out, compare)
	}
	return out
}

func matchesSearch(l models.Listing, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Name), term) ||
		strings.Contains(strings.ToLower(l.Location), term)
}

func inLocations(l models.Listing, locations []string) bool {
	city := l.City()
	for _, loc := range locations {
		if strings.EqualFold(city, strings.TrimSpace(loc)) {
			return true
		}
	}
	return false
}

func comparator(key string) func(a, b models.Listing) int {
	switch key {
	case KeyPrice:
		return byNumber(func(l models.Listing) *float64 { return l.Price })
	case KeySpace:
		return byNumber(func(l models.Listing) *float64 { return l.Space })
	case KeyTerrain:
		return byNumber(func(l models.Listing) *float64 { return l.Terrain })
	case KeyRooms:
		return byNumber(func(l models.Listing) *float64 { return l.Rooms })
	case KeyEnergyClass:
		return func(a, b models.Listing) int {
			return cmp.Compare(EnergyScore(a.EnergyClass), EnergyScore(b.EnergyClass))
		}
	case KeyViewDate:
		return func(a, b models.Listing) int {
			return cmp.Compare(viewDateKey(a), viewDateKey(b))
		}
	default:
		return func(a, b models.Listing) int {
			return strings.Compare(strings.ToLower(textField(a, key)), strings.ToLower(textField(b, key)))
		}
	}
}

// byNumber compares a numeric field, missing values counting as 0.
func byNumber(field func(models.Listing) *float64) func(a, b models.Listing) int {
	value := func(l models.Listing) float64 {
		if v := field(l); v != nil {
			return *v
		}
		return 0
	}
	return func(a, b models.Listing) int {
		return cmp.Compare(value(a), value(b))
	}
}

// viewDateKey orders by timestamp with no date sorting after every date.
func viewDateKey(l models.Listing) float64 {
	if l.ViewDate == nil {
		return math.Inf(1)
	}
	return float64(l.ViewDate.UnixMilli())
}

func textField(l models.Listing, key string) string {
	switch key {
	case KeyName:
		return l.Name
	case KeyLocation:
		return l.Location
	case KeyStatus:
		return l.Status
	case KeyLink:
		return l.Link
	case KeyID:
		return l.ID
	case "description":
		return l.Description
	case "firstPhoto":
		return l.FirstPhoto
	}
	return ""
}

// EnergyScore rates an energy label: A=1 through G=7, each trailing "+"
// lowering the score by 0.1. Missing or unknown labels score +Inf.
func EnergyScore(label string) float64 {
	label = strings.TrimSpace(label)
	if label == "" {
		return math.Inf(1)
	}
	letter := label[0] | 0x20 // lower-case ASCII
	if letter < 'a' || letter > 'g' {
		return math.Inf(1)
	}
	rest := label[1:]
	plus := len(rest) - len(strings.TrimLeft(rest, "+"))
	if plus != len(rest) {
		return math.Inf(1)
	}
	return float64(letter-'a'+1) - 0.1*float64(plus)
}
