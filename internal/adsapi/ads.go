package adsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/Fn-M/HousingManager/internal/normalize"
	"golang.org/x/sync/errgroup"
)

// bulkDeleteConcurrency bounds the fan-out of DeleteAllPictures.
const bulkDeleteConcurrency = 4

func adPath(id string, rest ...string) string {
	parts := []string{"/ads", url.PathEscape(id)}
	for _, r := range rest {
		parts = append(parts, url.PathEscape(r))
	}
	return strings.Join(parts, "/")
}

// ListAds fetches every ad. Records that fail to decode are logged and skipped.
func (c *Client) ListAds(ctx context.Context) ([]models.Listing, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/ads", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}

	listings, skipped, err := normalize.Listings(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ads: %w", err)
	}
	for _, de := range skipped {
		c.logger.Warn().Err(de).Msg("skipping undecodable ad")
	}

	now := time.Now()
	for i := range listings {
		listings[i].FetchedAt = now
	}
	return listings, nil
}

// GetAd fetches one ad. The API sometimes answers with the whole collection,
// in which case the matching record is picked out.
func (c *Client) GetAd(ctx context.Context, id string) (models.Listing, error) {
	data, err := c.doRequest(ctx, http.MethodGet, adPath(id), nil)
	if err != nil {
		return models.Listing{}, fmt.Errorf("failed to get ad %s: %w", id, err)
	}

	raw, err := normalize.UnwrapRecord(data, id)
	if err != nil {
		return models.Listing{}, err
	}
	listing, err := normalize.Listing(raw)
	if err != nil {
		return models.Listing{}, fmt.Errorf("failed to decode ad %s: %w", id, err)
	}
	listing.FetchedAt = time.Now()
	return listing, nil
}

// CreateAd registers a new ad by its Funda id.
func (c *Client) CreateAd(ctx context.Context, fundaID string, viewDate *time.Time) error {
	body := map[string]any{
		"FundaId":  fundaID,
		"viewDate": normalize.FormatTime(viewDate),
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "/ads", body); err != nil {
		return fmt.Errorf("failed to create ad %s: %w", fundaID, err)
	}
	return nil
}

// AdUpdate is the partial update sent when the status editor saves. Both
// fields are always sent so that clearing them reaches the API.
type AdUpdate struct {
	Status   string
	ViewDate *time.Time
}

func (u AdUpdate) payload() map[string]any {
	return map[string]any{
		"Status":   u.Status,
		"status":   u.Status,
		"viewDate": normalize.FormatTime(u.ViewDate),
	}
}

// UpdateAd applies a partial update to an ad.
func (c *Client) UpdateAd(ctx context.Context, id string, update AdUpdate) error {
	if _, err := c.doRequest(ctx, http.MethodPut, adPath(id), update.payload()); err != nil {
		return fmt.Errorf("failed to update ad %s: %w", id, err)
	}
	return nil
}

// DeleteAd removes an ad.
func (c *Client) DeleteAd(ctx context.Context, id string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, adPath(id), nil); err != nil {
		return fmt.Errorf("failed to delete ad %s: %w", id, err)
	}
	return nil
}

// ListPictures fetches the secondary pictures of an ad.
func (c *Client) ListPictures(ctx context.Context, adID string) ([]models.Picture, error) {
	data, err := c.doRequest(ctx, http.MethodGet, adPath(adID, "pictures"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list pictures of ad %s: %w", adID, err)
	}
	pictures, skipped, err := normalize.Pictures(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pictures of ad %s: %w", adID, err)
	}
	for _, de := range skipped {
		c.logger.Warn().Err(de).Str("ad_id", adID).Msg("skipping undecodable picture")
	}
	return pictures, nil
}

// DeletePicture removes one picture. The synthesized primary photo cannot be
// deleted and is rejected without contacting the API.
func (c *Client) DeletePicture(ctx context.Context, adID, pictureID string) error {
	if pictureID == models.PrimaryPictureID {
		return apperr.Validationf("DeletePicture", "The primary photo cannot be deleted")
	}
	if _, err := c.doRequest(ctx, http.MethodDelete, adPath(adID, "pictures", pictureID), nil); err != nil {
		return fmt.Errorf("failed to delete picture %s of ad %s: %w", pictureID, adID, err)
	}
	return nil
}

// BulkDeleteError reports the pictures that could not be deleted
type BulkDeleteError struct {
	AdID    string
	Deleted int
	Failed  map[string]error
}

func (e *BulkDeleteError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("deleted %d pictures of ad %s, %d failed (%s)",
		e.Deleted, e.AdID, len(e.Failed), strings.Join(ids, ", "))
}

// Unwrap exposes every individual failure.
func (e *BulkDeleteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// DeleteAllPictures deletes every non-primary picture of an ad concurrently
// and waits for all deletions to settle. It returns the number deleted and a
// *BulkDeleteError when any deletion failed.
func (c *Client) DeleteAllPictures(ctx context.Context, adID string) (int, error) {
	pictures, err := c.ListPictures(ctx, adID)
	if err != nil {
		return 0, err
	}

	var (
		mu      sync.Mutex
		deleted int
		failed  = map[string]error{}
		g       errgroup.Group
	)
	g.SetLimit(bulkDeleteConcurrency)

	for _, p := range pictures {
		if p.IsPrimary || p.PictureID == models.PrimaryPictureID {
			continue
		}
		g.Go(func() error {
			err := c.DeletePicture(ctx, adID, p.PictureID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[p.PictureID] = err
			} else {
				deleted++
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		return deleted, &BulkDeleteError{AdID: adID, Deleted: deleted, Failed: failed}
	}
	return deleted, nil
}

// ListComments fetches the flat comment list of an ad in API order.
func (c *Client) ListComments(ctx context.Context, adID string) ([]models.Comment, error) {
	data, err := c.doRequest(ctx, http.MethodGet, adPath(adID, "comments"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of ad %s: %w", adID, err)
	}
	comments, skipped, err := normalize.Comments(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode comments of ad %s: %w", adID, err)
	}
	for _, de := range skipped {
		c.logger.Warn().Err(de).Str("ad_id", adID).Msg("skipping undecodable comment")
	}
	return comments, nil
}

// AddComment appends a comment or, with ParentCommentID set, a reply.
func (c *Client) AddComment(ctx context.Context, adID string, comment models.NewComment) error {
	comment.AdID = adID
	if _, err := c.doRequest(ctx, http.MethodPost, adPath(adID, "comments"), comment); err != nil {
		return fmt.Errorf("failed to add comment to ad %s: %w", adID, err)
	}
	return nil
}

// IsNotFound reports whether err means the ad does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
