// Package dashboard is the application service behind the HTTP API and the
// CLI. It owns the listing store, keeps the optional cache, change log and
// search index in step with it, and mounts detail views.
package dashboard

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Fn-M/HousingManager/internal/adsapi"
	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/detail"
	"github.com/Fn-M/HousingManager/internal/listview"
	"github.com/Fn-M/HousingManager/internal/logging"
	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/Fn-M/HousingManager/internal/snapshot"
	"github.com/Fn-M/HousingManager/internal/store"
	"github.com/rs/zerolog"
)

// API is the part of the ads API the dashboard uses
type API interface {
	detail.Source
	ListAds(ctx context.Context) ([]models.Listing, error)
	CreateAd(ctx context.Context, fundaID string, viewDate *time.Time) error
	DeleteAd(ctx context.Context, id string) error
}

// Cache persists the last refreshed collection
type Cache interface {
	SaveListings(ctx context.Context, listings []models.Listing) error
	LoadListings(ctx context.Context) ([]models.Listing, error)
}

// ChangeLog records differences between refreshes
type ChangeLog interface {
	SaveChanges(ctx context.Context, changes []models.ListingChange) error
}

// DeleteLog records listings deleted through the dashboard
type DeleteLog interface {
	LogDeletion(ctx context.Context, entry *models.DeleteLog) error
}

// Indexer mirrors the store into a search engine
type Indexer interface {
	IndexListings(listings []models.Listing, removed []string) error
	RemoveListing(id string) error
}

// Options are the optional collaborators. Leave a field nil to disable it.
type Options struct {
	Cache     Cache
	Changes   ChangeLog
	Deletions DeleteLog
	Index     Indexer
}

// Service coordinates the store with the ads API and the optional backends
type Service struct {
	api    API
	store  *store.Store
	views  *detail.Registry
	opts   Options
	logger zerolog.Logger

	refreshMu sync.Mutex
	baseline  bool
	lastRun   RefreshResult
}

// New creates a dashboard service with an empty store.
func New(api API, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		api:    api,
		store:  store.New(),
		views:  detail.NewRegistry(),
		opts:   opts,
		logger: logging.Component(logger, "dashboard"),
	}
}

// Store exposes the listing store for read-only consumers.
func (s *Service) Store() *store.Store { return s.store }

// RefreshResult summarizes one refresh
type RefreshResult struct {
	Count      int       `json:"count"`
	Duplicates []string  `json:"duplicates,omitempty"`
	Changes    int       `json:"changes"`
	Removed    int       `json:"removed"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// Refresh replaces the store with the current ads. When the API call fails
// the store keeps its previous contents.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	listings, err := s.api.ListAds(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("refresh failed, keeping last known listings")
		return RefreshResult{}, adsapi.Classify("dashboard.Refresh", "Failed to load listings", err)
	}

	prev := s.store.All()
	dups := s.store.Replace(listings)
	next := s.store.All()
	if len(dups) > 0 {
		s.logger.Warn().Strs("ids", dups).Msg("dropped duplicate listing ids")
	}

	result := RefreshResult{
		Count:      len(next),
		Duplicates: dups,
		FetchedAt:  s.store.FetchedAt(),
	}

	removed := removedIDs(prev, next)
	result.Removed = len(removed)

	if s.baseline {
		changes := snapshot.Diff(prev, next, time.Now())
		result.Changes = len(changes)
		if len(changes) > 0 && s.opts.Changes != nil {
			if err := s.opts.Changes.SaveChanges(ctx, changes); err != nil {
				s.logger.Error().Err(err).Msg("failed to save listing changes")
			}
		}
	}
	s.baseline = true

	if s.opts.Cache != nil {
		if err := s.opts.Cache.SaveListings(ctx, next); err != nil {
			s.logger.Error().Err(err).Msg("failed to save listing cache")
		}
	}
	if s.opts.Index != nil {
		if err := s.opts.Index.IndexListings(next, removed); err != nil {
			s.logger.Error().Err(err).Msg("failed to index listings")
		}
	}

	s.lastRun = result
	s.logger.Info().
		Int("count", result.Count).
		Int("changes", result.Changes).
		Int("removed", result.Removed).
		Msg("listings refreshed")
	return result, nil
}

// LastRefresh returns the result of the latest successful refresh.
func (s *Service) LastRefresh() RefreshResult {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.lastRun
}

// Warm seeds an empty store from the cache. It returns the number of
// listings loaded.
func (s *Service) Warm(ctx context.Context) (int, error) {
	if s.opts.Cache == nil {
		return 0, nil
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.store.Len() > 0 {
		return 0, nil
	}
	listings, err := s.opts.Cache.LoadListings(ctx)
	if err != nil {
		return 0, err
	}
	if len(listings) == 0 {
		return 0, nil
	}
	s.store.Replace(listings)
	s.baseline = true
	s.logger.Info().Int("count", len(listings)).Msg("store warmed from cache")
	return len(listings), nil
}

func removedIDs(prev, next []models.Listing) []string {
	keep := make(map[string]struct{}, len(next))
	for _, l := range next {
		keep[l.ID] = struct{}{}
	}
	var out []string
	for _, l := range prev {
		if _, ok := keep[l.ID]; !ok {
			out = append(out, l.ID)
		}
	}
	return out
}

// Listings renders the list view for q.
func (s *Service) Listings(q listview.Query) listview.Result {
	return listview.Build(s.store.All(), q)
}

// Listing returns one listing from the store.
func (s *Service) Listing(id string) (models.Listing, error) {
	l, ok := s.store.Get(id)
	if !ok {
		return models.Listing{}, apperr.NotFoundf("dashboard.Listing", adsapi.MsgPropertyNotFound)
	}
	return l, nil
}

var fundaIDPattern = regexp.MustCompile(`/(\d+)/?$`)

// ErrInvalidURL is the message shown for links without a Funda id.
const ErrInvalidURL = "Invalid Funda URL. Please provide a valid property link."

// FundaID extracts the numeric id at the end of a Funda link.
func FundaID(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	m := fundaIDPattern.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// AddListing registers the property behind a Funda link and refreshes the
// store. The new ad is reported even when the follow-up refresh fails.
func (s *Service) AddListing(ctx context.Context, link string, viewDate *time.Time) (string, error) {
	id, ok := FundaID(link)
	if !ok {
		return "", apperr.Validationf("dashboard.AddListing", ErrInvalidURL)
	}
	if err := s.api.CreateAd(ctx, id, viewDate); err != nil {
		return "", adsapi.Classify("dashboard.AddListing", "Failed to add property", err)
	}
	s.logger.Info().Str("id", id).Str("user", logging.User(ctx)).Msg("property added")

	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("refresh after add failed")
	}
	return id, nil
}

// DeleteListing deletes every secondary picture and then the ad itself. If
// any step fails the store is left untouched.
func (s *Service) DeleteListing(ctx context.Context, id string) error {
	l, known := s.store.Get(id)

	n, err := s.api.DeleteAllPictures(ctx, id)
	if err != nil && !adsapi.IsNotFound(err) {
		return adsapi.Classify("dashboard.DeleteListing", "Failed to delete property photos", err)
	}
	if err := s.api.DeleteAd(ctx, id); err != nil {
		return adsapi.ClassifyAd("dashboard.DeleteListing", "Failed to delete property", err)
	}

	s.store.Remove(id)
	if closed := s.views.UnmountListing(id); closed > 0 {
		s.logger.Debug().Int("views", closed).Str("id", id).Msg("closed views of deleted property")
	}

	if s.opts.Deletions != nil {
		entry := &models.DeleteLog{
			ListingID:       id,
			DeletedBy:       logging.User(ctx),
			PicturesRemoved: n,
			Reason:          models.DeleteReasonManual,
		}
		if known {
			entry.Name = l.Name
			entry.Link = l.Link
		}
		if err := s.opts.Deletions.LogDeletion(ctx, entry); err != nil {
			s.logger.Error().Err(err).Str("id", id).Msg("failed to log deletion")
		}
	}
	if s.opts.Index != nil {
		if err := s.opts.Index.RemoveListing(id); err != nil {
			s.logger.Error().Err(err).Str("id", id).Msg("failed to remove listing from index")
		}
	}

	s.logger.Info().Str("id", id).Int("pictures", n).Msg("property deleted")
	return nil
}
