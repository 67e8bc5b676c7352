package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Fn-M/HousingManager/internal/adsapi"
	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/detail"
	"github.com/Fn-M/HousingManager/internal/listview"
	"github.com/Fn-M/HousingManager/internal/logging"
	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	ads       []models.Listing
	listErr   error
	created   []string
	deleted   []string
	picsErr   error
	deleteErr error
	updates   []adsapi.AdUpdate
}

func (f *fakeAPI) ListAds(ctx context.Context) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Listing(nil), f.ads...), nil
}

func (f *fakeAPI) CreateAd(ctx context.Context, id string, viewDate *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, id)
	f.ads = append(f.ads, models.Listing{ID: id, Name: "new " + id, ViewDate: viewDate})
	return nil
}

func (f *fakeAPI) DeleteAd(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) GetAd(ctx context.Context, id string) (models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.ads {
		if l.ID == id {
			return l, nil
		}
	}
	return models.Listing{}, adsapi.ErrNotFound
}

func (f *fakeAPI) UpdateAd(ctx context.Context, id string, u adsapi.AdUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeAPI) ListPictures(ctx context.Context, adID string) ([]models.Picture, error) {
	return []models.Picture{{PictureID: "p1", PictureURL: "https://cdn/1.jpg"}}, nil
}

func (f *fakeAPI) DeletePicture(ctx context.Context, adID, pictureID string) error { return nil }

func (f *fakeAPI) DeleteAllPictures(ctx context.Context, adID string) (int, error) {
	if f.picsErr != nil {
		return 1, f.picsErr
	}
	return 2, nil
}

func (f *fakeAPI) ListComments(ctx context.Context, adID string) ([]models.Comment, error) {
	return nil, nil
}

func (f *fakeAPI) AddComment(ctx context.Context, adID string, c models.NewComment) error {
	return nil
}

type recorder struct {
	mu        sync.Mutex
	saved     [][]models.Listing
	cached    []models.Listing
	changes   []models.ListingChange
	deletions []models.DeleteLog
	indexed   [][]string
	removed   []string
}

func (r *recorder) SaveListings(ctx context.Context, l []models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, l)
	return nil
}

func (r *recorder) LoadListings(ctx context.Context) ([]models.Listing, error) {
	return r.cached, nil
}

func (r *recorder) SaveChanges(ctx context.Context, c []models.ListingChange) error {
	r.changes = append(r.changes, c...)
	return nil
}

func (r *recorder) LogDeletion(ctx context.Context, e *models.DeleteLog) error {
	r.deletions = append(r.deletions, *e)
	return nil
}

func (r *recorder) IndexListings(l []models.Listing, removed []string) error {
	r.indexed = append(r.indexed, removed)
	return nil
}

func (r *recorder) RemoveListing(id string) error {
	r.removed = append(r.removed, id)
	return nil
}

func price(v float64) *float64 { return &v }

func newService(api *fakeAPI) (*Service, *recorder) {
	rec := &recorder{}
	svc := New(api, Options{Cache: rec, Changes: rec, Deletions: rec, Index: rec}, zerolog.Nop())
	return svc, rec
}

func TestRefreshDiffsAgainstPreviousContents(t *testing.T) {
	api := &fakeAPI{ads: []models.Listing{
		{ID: "1", Name: "A", Location: "1011 AB Amsterdam", Price: price(400000)},
		{ID: "2", Name: "B", Location: "3511 Utrecht"},
	}}
	svc, rec := newService(api)

	res, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Zero(t, res.Changes, "first refresh only sets the baseline")
	assert.Empty(t, rec.changes)

	api.ads = []models.Listing{
		{ID: "1", Name: "A", Location: "1011 AB Amsterdam", Price: price(390000)},
		{ID: "3", Name: "C"},
	}
	res, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	var types []string
	for _, c := range rec.changes {
		types = append(types, c.ChangeType)
	}
	assert.ElementsMatch(t, []string{models.ChangeTypePrice, models.ChangeTypeNew, models.ChangeTypeRemoved}, types)
	assert.Len(t, rec.saved, 2)
	assert.Equal(t, []string{"2"}, rec.indexed[1])
}

func TestRefreshFailureKeepsLastKnownGood(t *testing.T) {
	api := &fakeAPI{ads: []models.Listing{{ID: "1"}, {ID: "1"}}}
	svc, _ := newService(api)

	res, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.Duplicates)

	api.listErr = errors.New("connection refused")
	_, err = svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.Remote, apperr.KindOf(err))
	assert.Equal(t, 1, svc.Store().Len())
}

func TestWarmSeedsEmptyStore(t *testing.T) {
	svc, rec := newService(&fakeAPI{})
	rec.cached = []models.Listing{{ID: "9", Name: "cached"}}

	n, err := svc.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Warm(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "a populated store is not overwritten")
}

func TestListingsAppliesQuery(t *testing.T) {
	api := &fakeAPI{ads: []models.Listing{
		{ID: "1", Name: "Canal", Location: "1234 Amsterdam"},
		{ID: "2", Name: "Dom", Location: "3511 Utrecht"},
	}}
	svc, _ := newService(api)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	res := svc.Listings(listview.Query{Search: "amsterdam"})
	require.Len(t, res.Items, 1)
	assert.Equal(t, "1", res.Items[0].ID)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"Amsterdam", "Utrecht"}, res.Cities)
}

func TestFundaID(t *testing.T) {
	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"https://www.funda.nl/detail/koop/amsterdam/huis-x/43123456/", "43123456", true},
		{"https://www.funda.nl/detail/koop/amsterdam/huis-x/43123456", "43123456", true},
		{"https://www.funda.nl/detail/koop/amsterdam/huis-x/43123456/?utm=1", "43123456", true},
		{"https://www.funda.nl/detail/koop/amsterdam/huis-x/", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FundaID(tt.link)
		assert.Equal(t, tt.ok, ok, tt.link)
		assert.Equal(t, tt.want, got, tt.link)
	}
}

func TestAddListing(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := newService(api)

	_, err := svc.AddListing(context.Background(), "https://www.funda.nl/koop/", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Equal(t, ErrInvalidURL, apperr.Message(err))
	assert.Empty(t, api.created)

	id, err := svc.AddListing(context.Background(), "https://www.funda.nl/koop/x/777/", nil)
	require.NoError(t, err)
	assert.Equal(t, "777", id)
	_, ok := svc.Store().Get("777")
	assert.True(t, ok)
}

func TestDeleteListing(t *testing.T) {
	api := &fakeAPI{ads: []models.Listing{{ID: "1", Name: "A", Link: "https://funda/1"}, {ID: "2"}}}
	svc, rec := newService(api)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	ctx := logging.WithUser(context.Background(), "Ana")
	v, err := svc.OpenView(ctx, "Ana", "1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteListing(ctx, "1"))
	_, ok := svc.Store().Get("1")
	assert.False(t, ok)
	assert.False(t, v.Alive(), "views of the deleted listing are closed")
	assert.Equal(t, []string{"1"}, rec.removed)
	require.Len(t, rec.deletions, 1)
	assert.Equal(t, "Ana", rec.deletions[0].DeletedBy)
	assert.Equal(t, 2, rec.deletions[0].PicturesRemoved)
	assert.Equal(t, "A", rec.deletions[0].Name)
}

func TestDeleteListingPartialFailureKeepsStore(t *testing.T) {
	api := &fakeAPI{ads: []models.Listing{{ID: "1"}}}
	svc, rec := newService(api)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	api.picsErr = &adsapi.BulkDeleteError{AdID: "1", Deleted: 1, Failed: map[string]error{"p2": errors.New("boom")}}
	err = svc.DeleteListing(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, apperr.Remote, apperr.KindOf(err))
	assert.Empty(t, api.deleted, "the ad is not deleted after a picture failure")
	_, ok := svc.Store().Get("1")
	assert.True(t, ok)
	assert.Empty(t, rec.deletions)

	api.picsErr = nil
	api.deleteErr = &adsapi.APIError{Method: "DELETE", Path: "/ads/1", StatusCode: 500}
	require.Error(t, svc.DeleteListing(context.Background(), "1"))
	_, ok = svc.Store().Get("1")
	assert.True(t, ok)
}

func TestSaveEditPatchesStore(t *testing.T) {
	api := &fakeAPI{ads: []models.Listing{{ID: "1", Name: "A"}}}
	svc, _ := newService(api)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	v, err := svc.OpenView(context.Background(), "Ana", "1")
	require.NoError(t, err)

	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, v.BeginEdit())
	require.NoError(t, v.UpdateDraft(detail.Draft{ViewDate: &date}))
	_, err = v.SaveEdit(context.Background())
	require.NoError(t, err)

	l, ok := svc.Store().Get("1")
	require.True(t, ok)
	assert.Equal(t, models.StatusViewBooked, l.Status)
	require.NotNil(t, l.ViewDate)
	assert.True(t, l.ViewDate.Equal(date))

	got, err := svc.View("Ana")
	require.NoError(t, err)
	assert.Same(t, v, got)

	assert.True(t, svc.CloseView("Ana"))
	_, err = svc.View("Ana")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestOpenViewRefreshesStoredListing(t *testing.T) {
	api := &fakeAPI{ads: []models.Listing{{ID: "1", Name: "A", Status: "View"}}}
	svc, _ := newService(api)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	api.mu.Lock()
	api.ads[0].Status = models.StatusOfferMade
	api.ads = append(api.ads, models.Listing{ID: "2", Name: "B"})
	api.mu.Unlock()

	_, err = svc.OpenView(context.Background(), "Ana", "1")
	require.NoError(t, err)
	l, ok := svc.Store().Get("1")
	require.True(t, ok)
	assert.Equal(t, models.StatusOfferMade, l.Status)

	_, err = svc.OpenView(context.Background(), "Ana", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Store().Len())
}

func TestStats(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	soon := now.Add(48 * time.Hour)
	later := now.AddDate(0, 1, 0)
	api := &fakeAPI{ads: []models.Listing{
		{ID: "1", Location: "1 Amsterdam", Status: models.StatusViewBooked, ViewDate: &soon},
		{ID: "2", Location: "2 Amsterdam", ViewDate: &later},
		{ID: "3", Location: "3 Utrecht"},
	}}
	svc, _ := newService(api)
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	st := svc.Stats(now)
	assert.Equal(t, 3, st.Listings)
	assert.Equal(t, 2, st.WithViewing)
	assert.Equal(t, 1, st.ByStatus[models.StatusViewBooked])
	assert.Equal(t, 2, st.ByStatus["none"])
	assert.Equal(t, []CityCount{{"Amsterdam", 2}, {"Utrecht", 1}}, st.ByCity)
	require.Len(t, st.Upcoming, 1)
	assert.Equal(t, "1", st.Upcoming[0].ID)

	vs := Viewings(svc.Store().All())
	require.Len(t, vs, 2)
	assert.Equal(t, "1", vs[0].ID)
}
