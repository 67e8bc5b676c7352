package listview

import (
	"slices"
	"strings"

	"github.com/Fn-M/HousingManager/internal/models"
)

var statusLabels = map[string]string{
	"view-booked": "View booked",
	"offer-made":  "Offer made",
	"viewed":      "Viewed",
	"interested":  "Interested",
	"rejected":    "Rejected",
}

// StatusLabel returns the display label of a status slug, or the status itself.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// Statuses returns the distinct non-empty statuses in first-seen order.
func Statuses(listings []models.Listing) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range listings {
		if l.Status == "" || seen[l.Status] {
			continue
		}
		seen[l.Status] = true
		out = append(out, l.Status)
	}
	return out
}

// Cities returns the distinct cities, sorted case-insensitively.
func Cities(listings []models.Listing) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range listings {
		city := l.City()
		key := strings.ToLower(city)
		if city == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, city)
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}

// Result is a rendered page of the list view
type Result struct {
	Items    []models.Listing `json:"items"`
	Shown    int              `json:"shown"`
	Total    int              `json:"total"`
	Cities   []string         `json:"cities"`
	Statuses []string         `json:"statuses"`
}

// Build applies q and collects the filter options from the unfiltered set.
func Build(listings []models.Listing, q Query) Result {
	items := Apply(listings, q)
	return Result{
		Items:    items,
		Shown:    len(items),
		Total:    len(listings),
		Cities:   Cities(listings),
		Statuses: Statuses(listings),
	}
}
