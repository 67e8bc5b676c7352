// Package search mirrors the listing collection into a Meilisearch index for
// full-text search over names, locations and descriptions.
package search

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/meilisearch/meilisearch-go"
)

// DefaultIndex is the index uid used when none is configured.
const DefaultIndex = "listings"

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = DefaultIndex
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// document is the indexed form of a listing. Times are epoch milliseconds so
// that they can be sorted and filtered.
type document struct {
	ID          string   `json:"id"`
	Link        string   `json:"link"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	City        string   `json:"city"`
	Price       *float64 `json:"price"`
	Space       *float64 `json:"space"`
	Terrain     *float64 `json:"terrain"`
	Rooms       *float64 `json:"rooms"`
	EnergyClass string   `json:"energy_class"`
	FirstPhoto  string   `json:"first_photo"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	ViewDate    *int64   `json:"view_date"`
	FetchedAt   int64    `json:"fetched_at"`
}

func toDocument(l models.Listing) document {
	d := document{
		ID:          l.ID,
		Link:        l.Link,
		Name:        l.Name,
		Location:    l.Location,
		City:        l.City(),
		Price:       l.Price,
		Space:       l.Space,
		Terrain:     l.Terrain,
		Rooms:       l.Rooms,
		EnergyClass: l.EnergyClass,
		FirstPhoto:  l.FirstPhoto,
		Description: l.Description,
		Status:      l.Status,
		FetchedAt:   l.FetchedAt.UnixMilli(),
	}
	if l.ViewDate != nil {
		ms := l.ViewDate.UnixMilli()
		d.ViewDate = &ms
	}
	return d
}

func (d document) listing() models.Listing {
	l := models.Listing{
		ID:          d.ID,
		Link:        d.Link,
		Name:        d.Name,
		Location:    d.Location,
		Price:       d.Price,
		Space:       d.Space,
		Terrain:     d.Terrain,
		Rooms:       d.Rooms,
		EnergyClass: d.EnergyClass,
		FirstPhoto:  d.FirstPhoto,
		Description: d.Description,
		Status:      d.Status,
		FetchedAt:   time.UnixMilli(d.FetchedAt),
	}
	if d.ViewDate != nil {
		t := time.UnixMilli(*d.ViewDate).UTC()
		l.ViewDate = &t
	}
	return l
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"name",
		"location",
		"description",
		"status",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"city",
		"status",
		"price",
		"space",
		"rooms",
		"energy_class",
		"view_date",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"space",
		"terrain",
		"rooms",
		"view_date",
		"fetched_at",
	})
	if err != nil {
		return err
	}

	return nil
}

// Healthy reports whether the server answers.
func (s *SearchClient) Healthy() bool {
	return s.client.IsHealthy()
}

// IndexListings upserts listings and drops the documents of removed ids.
func (s *SearchClient) IndexListings(listings []models.Listing, removed []string) error {
	if len(listings) > 0 {
		docs := make([]document, 0, len(listings))
		for _, l := range listings {
			docs = append(docs, toDocument(l))
		}
		if _, err := s.client.Index(s.index).AddDocuments(docs, "id"); err != nil {
			return err
		}
	}
	if len(removed) > 0 {
		if _, err := s.client.Index(s.index).DeleteDocuments(removed); err != nil {
			return err
		}
	}
	return nil
}

// RemoveListing deletes a single document.
func (s *SearchClient) RemoveListing(id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}

// SearchRequest represents advanced search parameters
type SearchRequest struct {
	Query  string
	Limit  int64
	Offset int64
	Filter string
	Sort   []string
	Facets []string
}

// SearchResult represents search results with facets
type SearchResult struct {
	Hits           []models.Listing `json:"hits"`
	TotalHits      int64            `json:"total_hits"`
	Facets         map[string]any   `json:"facets,omitempty"`
	ProcessingTime int64            `json:"processing_time_ms"`
}

// Search searches for listings with basic options
func (s *SearchClient) Search(query string, limit int64) ([]models.Listing, error) {
	result, err := s.AdvancedSearch(SearchRequest{
		Query: query,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return result.Hits, nil
}

// AdvancedSearch performs advanced search with facets and filters
func (s *SearchClient) AdvancedSearch(req SearchRequest) (*SearchResult, error) {
	if req.Limit == 0 {
		req.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if req.Filter != "" {
		searchReq.Filter = req.Filter
	}
	if len(req.Sort) > 0 {
		searchReq.Sort = req.Sort
	}
	if len(req.Facets) > 0 {
		searchReq.Facets = req.Facets
	}

	searchRes, err := s.client.Index(s.index).Search(req.Query, searchReq)
	if err != nil {
		return nil, err
	}

	hits, err := parseHits(searchRes.Hits)
	if err != nil {
		return nil, err
	}

	var facets map[string]any
	if searchRes.FacetDistribution != nil {
		facets, _ = searchRes.FacetDistribution.(map[string]any)
	}

	return &SearchResult{
		Hits:           hits,
		TotalHits:      searchRes.EstimatedTotalHits,
		Facets:         facets,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}, nil
}

// parseHits converts raw hits to listings, skipping hits without an id.
func parseHits(hits []any) ([]models.Listing, error) {
	listings := make([]models.Listing, 0, len(hits))
	for _, hit := range hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			return nil, err
		}
		var d document
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, errors.Join(errors.New("unexpected search hit"), err)
		}
		if d.ID == "" {
			continue
		}
		listings = append(listings, d.listing())
	}
	return listings, nil
}

// GetFacets retrieves facet distribution for specified fields
func (s *SearchClient) GetFacets(facets []string) (map[string]any, error) {
	searchRes, err := s.client.Index(s.index).Search("", &meilisearch.SearchRequest{
		Limit:  0,
		Facets: facets,
	})
	if err != nil {
		return nil, err
	}

	if facetMap, ok := searchRes.FacetDistribution.(map[string]any); ok {
		return facetMap, nil
	}
	return map[string]any{}, nil
}
