package search

import (
	"fmt"
	"strings"

	"github.com/Fn-M/HousingManager/internal/models"
)

type FilterParams struct {
	Query    string
	MinPrice *float64
	MaxPrice *float64
	MinRooms *float64
	Statuses []string
	Cities   []string
	SortBy   string // e.g. "price:asc"
	Limit    int64
}

// BuildFilter renders params as a Meilisearch filter expression.
func BuildFilter(params FilterParams) string {
	var filters []string

	if params.MinPrice != nil {
		filters = append(filters, fmt.Sprintf("price >= %g", *params.MinPrice))
	}
	if params.MaxPrice != nil {
		filters = append(filters, fmt.Sprintf("price <= %g", *params.MaxPrice))
	}
	if params.MinRooms != nil {
		filters = append(filters, fmt.Sprintf("rooms >= %g", *params.MinRooms))
	}
	if f := anyOf("status", params.Statuses); f != "" {
		filters = append(filters, f)
	}
	if f := anyOf("city", params.Cities); f != "" {
		filters = append(filters, f)
	}

	return strings.Join(filters, " AND ")
}

func anyOf(field string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, fmt.Sprintf("%s = %s", field, quote(v)))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " OR "))
}

// quote wraps a filter value in double quotes, escaping the ones inside.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// FilterSearch performs advanced search with filters
func (s *SearchClient) FilterSearch(params FilterParams) ([]models.Listing, error) {
	req := SearchRequest{
		Query:  params.Query,
		Limit:  params.Limit,
		Filter: BuildFilter(params),
	}
	if params.SortBy != "" {
		req.Sort = []string{params.SortBy}
	}

	result, err := s.AdvancedSearch(req)
	if err != nil {
		return nil, err
	}
	return result.Hits, nil
}
