package dashboard

import (
	"sort"
	"time"

	"github.com/Fn-M/HousingManager/internal/listview"
	"github.com/Fn-M/HousingManager/internal/models"
)

// Stats summarizes the store for the admin endpoint
type Stats struct {
	Listings    int            `json:"listings"`
	ByStatus    map[string]int `json:"by_status"`
	ByCity      []CityCount    `json:"by_city"`
	WithViewing int            `json:"with_viewing"`
	Upcoming    []Viewing      `json:"upcoming_viewings"`
	FetchedAt   time.Time      `json:"fetched_at"`
	OpenViews   int            `json:"open_views"`
	LastRefresh RefreshResult  `json:"last_refresh"`
}

// CityCount is the number of listings in one city
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Viewing is a scheduled visit
type Viewing struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// maxCities bounds the city breakdown.
const maxCities = 20

// Stats computes the summary at now. Viewings within the next week are listed
// soonest first.
func (s *Service) Stats(now time.Time) Stats {
	listings := s.store.All()
	st := Stats{
		Listings:    len(listings),
		ByStatus:    map[string]int{},
		FetchedAt:   s.store.FetchedAt(),
		OpenViews:   s.views.Len(),
		LastRefresh: s.LastRefresh(),
	}

	cities := map[string]int{}
	weekAhead := now.AddDate(0, 0, 7)
	for _, l := range listings {
		label := listview.StatusLabel(l.Status)
		if label == "" {
			label = "none"
		}
		st.ByStatus[label]++
		if c := l.City(); c != "" {
			cities[c]++
		}
		if l.HasViewing() {
			st.WithViewing++
			if !l.ViewDate.Before(now) && l.ViewDate.Before(weekAhead) {
				st.Upcoming = append(st.Upcoming, Viewing{ID: l.ID, Name: l.Name, Date: *l.ViewDate})
			}
		}
	}

	for c, n := range cities {
		st.ByCity = append(st.ByCity, CityCount{City: c, Count: n})
	}
	sort.Slice(st.ByCity, func(i, j int) bool {
		if st.ByCity[i].Count != st.ByCity[j].Count {
			return st.ByCity[i].Count > st.ByCity[j].Count
		}
		return st.ByCity[i].City < st.ByCity[j].City
	})
	if len(st.ByCity) > maxCities {
		st.ByCity = st.ByCity[:maxCities]
	}
	sort.Slice(st.Upcoming, func(i, j int) bool {
		return st.Upcoming[i].Date.Before(st.Upcoming[j].Date)
	})
	return st
}

// Viewings returns every listing with a scheduled visit, soonest first.
func Viewings(listings []models.Listing) []Viewing {
	var out []Viewing
	for _, l := range listings {
		if l.ViewDate != nil {
			out = append(out, Viewing{ID: l.ID, Name: l.Name, Date: *l.ViewDate})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
