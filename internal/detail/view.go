// Package detail holds the state of a mounted listing detail screen: the
// listing, its photo carousel, its comment thread and the status editor.
package detail

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fn-M/HousingManager/internal/adsapi"
	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/carousel"
	"github.com/Fn-M/HousingManager/internal/comments"
	"github.com/Fn-M/HousingManager/internal/editor"
	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source is the slice of the ads API a detail view needs
type Source interface {
	GetAd(ctx context.Context, id string) (models.Listing, error)
	UpdateAd(ctx context.Context, id string, update adsapi.AdUpdate) error
	ListPictures(ctx context.Context, adID string) ([]models.Picture, error)
	DeletePicture(ctx context.Context, adID, pictureID string) error
	DeleteAllPictures(ctx context.Context, adID string) (int, error)
	ListComments(ctx context.Context, adID string) ([]models.Comment, error)
	AddComment(ctx context.Context, adID string, comment models.NewComment) error
}

// Sections of a view, used as keys of load errors
const (
	SectionListing  = "listing"
	SectionPictures = "pictures"
	SectionComments = "comments"
)

// View is the detail screen of one listing for one user. Results that arrive
// after Close are discarded.
type View struct {
	id     string
	user   string
	src    Source
	logger zerolog.Logger

	// OnCommit is called with the updated listing after a confirmed edit.
	OnCommit func(models.Listing)

	alive atomic.Bool

	mu       sync.RWMutex
	listing  *models.Listing
	pictures []models.Picture
	thread   []models.Comment
	tree     []*comments.Node
	collapse *comments.CollapseState
	photos   *carousel.Controller
	edit     *editor.Editor
	errs     map[string]string
	loadedAt time.Time
}

// Open mounts a view for listing id. Nothing is fetched until Load.
func Open(src Source, id, user string, logger zerolog.Logger) *View {
	v := &View{
		id:       id,
		user:     user,
		src:      src,
		logger:   logger.With().Str("listing_id", id).Str("user", user).Logger(),
		collapse: comments.NewCollapseState(),
		tree:     make([]*comments.Node, 0),
		errs:     make(map[string]string),
	}
	v.alive.Store(true)
	return v
}

func (v *View) ID() string { return v.id }

// Alive reports whether the view is still mounted.
func (v *View) Alive() bool { return v.alive.Load() }

// Close unmounts the view.
func (v *View) Close() {
	if v.alive.CompareAndSwap(true, false) {
		v.logger.Debug().Msg("detail view closed")
	}
}

// apply runs fn under the write lock unless the view was closed meanwhile.
func (v *View) apply(fn func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.alive.Load() {
		return false
	}
	fn()
	return true
}

// Load fetches the listing, its pictures and its comments concurrently. Each
// part is applied as soon as it arrives. The first failure is returned; the
// other parts are still populated.
func (v *View) Load(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		l, err := v.src.GetAd(ctx, v.id)
		if err != nil {
			err = adsapi.ClassifyAd("detail.Load", "Failed to load property", err)
			v.setError(SectionListing, err)
			return err
		}
		v.apply(func() { v.setListing(l) })
		return nil
	})
	g.Go(func() error {
		pics, err := v.src.ListPictures(ctx, v.id)
		if err != nil {
			err = adsapi.Classify("detail.Load", "Failed to load pictures", err)
			v.setError(SectionPictures, err)
			return err
		}
		v.apply(func() { v.setPictures(pics) })
		return nil
	})
	g.Go(func() error {
		list, err := v.src.ListComments(ctx, v.id)
		if err != nil {
			err = adsapi.Classify("detail.Load", "Failed to load comments", err)
			v.setError(SectionComments, err)
			return err
		}
		v.apply(func() { v.setComments(list) })
		return nil
	})

	err := g.Wait()
	if !v.Alive() {
		v.logger.Debug().Msg("discarded results of a closed detail view")
		return nil
	}
	if err != nil {
		v.logger.Warn().Err(err).Msg("detail view loaded with errors")
		return err
	}
	v.apply(func() { v.loadedAt = time.Now() })
	return nil
}

func (v *View) setError(section string, err error) {
	v.apply(func() { v.errs[section] = apperr.Message(err) })
}

// setListing, setPictures and setComments are called with mu held.
func (v *View) setListing(l models.Listing) {
	delete(v.errs, SectionListing)
	v.listing = &l
	if v.edit == nil {
		v.edit = editor.New(l)
	} else {
		v.edit.Sync(l)
	}
	v.rebuildCarousel()
}

func (v *View) setPictures(pics []models.Picture) {
	delete(v.errs, SectionPictures)
	if pics == nil {
		pics = []models.Picture{}
	}
	v.pictures = pics
	v.rebuildCarousel()
}

func (v *View) setComments(list []models.Comment) {
	delete(v.errs, SectionComments)
	v.thread = list
	v.tree = comments.BuildTree(list)
}

// rebuildCarousel needs both the listing, for its primary photo, and the pictures.
func (v *View) rebuildCarousel() {
	if v.listing == nil || v.pictures == nil {
		return
	}
	if v.photos == nil {
		v.photos = carousel.New(v.id, v.listing.FirstPhoto, v.pictures)
		return
	}
	v.photos.Reset(v.pictures)
}

// Listing returns the loaded listing.
func (v *View) Listing() (models.Listing, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.listing == nil {
		return models.Listing{}, false
	}
	return *v.listing, true
}

func (v *View) photoCtl() (*carousel.Controller, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.photos == nil {
		return nil, apperr.New(apperr.Conflict, "detail.carousel", "Photos are still loading")
	}
	return v.photos, nil
}

func (v *View) editSession() (*editor.Editor, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.edit == nil {
		return nil, apperr.New(apperr.Conflict, "detail.editor", "Property is still loading")
	}
	return v.edit, nil
}

// refreshComments re-fetches the thread after a mutation.
func (v *View) refreshComments(ctx context.Context) error {
	list, err := v.src.ListComments(ctx, v.id)
	if err != nil {
		return adsapi.Classify("detail.refreshComments", "Failed to load comments", err)
	}
	v.apply(func() { v.setComments(list) })
	return nil
}

// refreshPictures re-fetches the photos so only confirmed deletions show.
func (v *View) refreshPictures(ctx context.Context) error {
	pics, err := v.src.ListPictures(ctx, v.id)
	if err != nil {
		return adsapi.Classify("detail.refreshPictures", "Failed to load pictures", err)
	}
	v.apply(func() { v.setPictures(pics) })
	return nil
}

// AddComment posts a top-level comment and re-fetches the thread.
func (v *View) AddComment(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.Validationf("detail.AddComment", "Comment cannot be empty")
	}
	return v.postComment(ctx, models.NewComment{CreatedBy: v.user, Description: text}, "Failed to add comment")
}

// Reply answers an existing comment and re-fetches the thread.
func (v *View) Reply(ctx context.Context, parentID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.Validationf("detail.Reply", "Reply cannot be empty")
	}
	v.mu.RLock()
	parent := comments.Find(v.tree, parentID)
	v.mu.RUnlock()
	if parent == nil {
		return apperr.NotFoundf("detail.Reply", "Comment %s not found", parentID)
	}
	return v.postComment(ctx, models.NewComment{
		CreatedBy:       v.user,
		Description:     text,
		ParentCommentID: parentID,
	}, "Failed to add reply")
}

func (v *View) postComment(ctx context.Context, c models.NewComment, failMsg string) error {
	if err := v.src.AddComment(ctx, v.id, c); err != nil {
		return adsapi.Classify("detail.postComment", failMsg, err)
	}
	v.logger.Info().Bool("reply", c.ParentCommentID != "").Msg("comment added")
	return v.refreshComments(ctx)
}

// ToggleReplies folds or unfolds the replies of one comment.
func (v *View) ToggleReplies(commentID string) (bool, error) {
	v.mu.RLock()
	node := comments.Find(v.tree, commentID)
	v.mu.RUnlock()
	if node == nil {
		return false, apperr.NotFoundf("detail.ToggleReplies", "Comment %s not found", commentID)
	}
	return v.collapse.Toggle(commentID), nil
}

func (v *View) NextPhoto() (int, error) {
	c, err := v.photoCtl()
	if err != nil {
		return 0, err
	}
	return c.Next(), nil
}

func (v *View) PrevPhoto() (int, error) {
	c, err := v.photoCtl()
	if err != nil {
		return 0, err
	}
	return c.Prev(), nil
}

func (v *View) SelectPhoto(i int) error {
	c, err := v.photoCtl()
	if err != nil {
		return err
	}
	if err := c.Select(i); err != nil {
		return apperr.Wrap(apperr.Validation, "detail.SelectPhoto", "No such photo", err)
	}
	return nil
}

// HandleKey forwards a keyboard event to the carousel.
func (v *View) HandleKey(key string) (bool, error) {
	c, err := v.photoCtl()
	if err != nil {
		return false, err
	}
	return c.HandleKey(key), nil
}

func (v *View) ExpandPhotos(on bool) error {
	c, err := v.photoCtl()
	if err != nil {
		return err
	}
	c.Expand(on)
	return nil
}

// DeleteCurrentPhoto deletes the photo on display.
func (v *View) DeleteCurrentPhoto(ctx context.Context) (models.Picture, error) {
	c, err := v.photoCtl()
	if err != nil {
		return models.Picture{}, err
	}
	removed, err := c.DeleteCurrent(ctx, v.src)
	switch {
	case errors.Is(err, carousel.ErrPrimaryPhoto):
		return models.Picture{}, apperr.Wrap(apperr.Validation, "detail.DeleteCurrentPhoto", "The primary photo cannot be deleted", err)
	case errors.Is(err, carousel.ErrDeletionInFlight):
		return models.Picture{}, apperr.Wrap(apperr.Conflict, "detail.DeleteCurrentPhoto", "Another photo is being deleted", err)
	case errors.Is(err, carousel.ErrEmpty):
		return models.Picture{}, apperr.Wrap(apperr.Validation, "detail.DeleteCurrentPhoto", "There is no photo to delete", err)
	case err != nil:
		return models.Picture{}, adsapi.Classify("detail.DeleteCurrentPhoto", "Failed to delete photo", err)
	}

	v.apply(func() {
		kept := v.pictures[:0:0]
		for _, p := range v.pictures {
			if p.PictureID != removed.PictureID {
				kept = append(kept, p)
			}
		}
		v.pictures = kept
	})
	v.logger.Info().Str("picture_id", removed.PictureID).Msg("photo deleted")
	return removed, nil
}

// DeleteAllPhotos deletes every non-primary photo, waits for all deletions to
// settle and re-fetches the list. A partial failure is reported after the
// re-fetch so the carousel only drops confirmed deletions. It is refused while
// any other photo deletion is pending.
func (v *View) DeleteAllPhotos(ctx context.Context) (int, error) {
	c, err := v.photoCtl()
	if err != nil {
		return 0, err
	}

	var (
		n                  int
		delErr, refreshErr error
	)
	err = c.DeleteAll(ctx, func(ctx context.Context) error {
		n, delErr = v.src.DeleteAllPictures(ctx, v.id)
		refreshErr = v.refreshPictures(ctx)
		return nil
	})
	if errors.Is(err, carousel.ErrDeletionInFlight) {
		return 0, apperr.Wrap(apperr.Conflict, "detail.DeleteAllPhotos", "Another photo is being deleted", err)
	}

	if delErr != nil {
		v.logger.Warn().Err(delErr).Int("deleted", n).Msg("bulk photo deletion incomplete")
		return n, adsapi.Classify("detail.DeleteAllPhotos", "Failed to delete all photos", delErr)
	}
	v.logger.Info().Int("deleted", n).Msg("all photos deleted")
	return n, refreshErr
}

// BeginEdit opens the status editor.
func (v *View) BeginEdit() error {
	e, err := v.editSession()
	if err != nil {
		return err
	}
	e.Begin()
	return nil
}

// Draft is a partial change to the edit buffer
type Draft struct {
	Status        *string    `json:"status"`
	ViewDate      *time.Time `json:"viewDate"`
	ClearViewDate bool       `json:"clearViewDate"`
}

// UpdateDraft changes the edit buffer without saving.
func (v *View) UpdateDraft(d Draft) error {
	e, err := v.editSession()
	if err != nil {
		return err
	}
	if d.Status != nil {
		if err := e.SetStatus(strings.TrimSpace(*d.Status)); err != nil {
			return apperr.Wrap(apperr.Conflict, "detail.UpdateDraft", "Not editing", err)
		}
	}
	if d.ViewDate != nil || d.ClearViewDate {
		date := d.ViewDate
		if d.ClearViewDate {
			date = nil
		}
		if err := e.SetViewDate(date); err != nil {
			return apperr.Wrap(apperr.Conflict, "detail.UpdateDraft", "Not editing", err)
		}
	}
	return nil
}

// SaveEdit commits the edit buffer through the ads API.
func (v *View) SaveEdit(ctx context.Context) (editor.Values, error) {
	e, err := v.editSession()
	if err != nil {
		return editor.Values{}, err
	}

	saved, err := e.Save(ctx, editor.UpdaterFunc(func(ctx context.Context, id string, vals editor.Values) error {
		return v.src.UpdateAd(ctx, id, adsapi.AdUpdate{Status: vals.Status, ViewDate: vals.ViewDate})
	}))
	switch {
	case errors.Is(err, editor.ErrNotEditing):
		return editor.Values{}, apperr.Wrap(apperr.Conflict, "detail.SaveEdit", "Not editing", err)
	case errors.Is(err, editor.ErrSaveInFlight):
		return editor.Values{}, apperr.Wrap(apperr.Conflict, "detail.SaveEdit", "A save is already in progress", err)
	case err != nil:
		return editor.Values{}, adsapi.ClassifyAd("detail.SaveEdit", "Failed to update status", err)
	}

	v.apply(func() {
		v.listing.Status = saved.Status
		v.listing.ViewDate = saved.ViewDate
	})
	// the API has the change even if the view was closed meanwhile
	if v.OnCommit != nil {
		v.mu.RLock()
		updated := *v.listing
		v.mu.RUnlock()
		updated.Status = saved.Status
		updated.ViewDate = saved.ViewDate
		v.OnCommit(updated)
	}
	v.logger.Info().Str("status", saved.Status).Msg("status saved")
	return saved, nil
}

// CancelEdit discards the edit buffer.
func (v *View) CancelEdit() error {
	e, err := v.editSession()
	if err != nil {
		return err
	}
	e.Cancel()
	return nil
}
