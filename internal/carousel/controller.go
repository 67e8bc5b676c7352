package carousel

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/Fn-M/HousingManager/internal/models"
)

var (
	// ErrPrimaryPhoto is returned when the pinned primary photo is targeted for deletion.
	ErrPrimaryPhoto = errors.New("the primary photo cannot be deleted")
	// ErrDeletionInFlight is returned while another deletion is pending.
	ErrDeletionInFlight = errors.New("a photo deletion is already in progress")
	ErrEmpty            = errors.New("no photos")
	ErrIndexOutOfRange  = errors.New("photo index out of range")
)

// Keys understood by HandleKey
const (
	KeyLeft   = "ArrowLeft"
	KeyRight  = "ArrowRight"
	KeyEscape = "Escape"
)

// Deleter removes one picture remotely
type Deleter interface {
	DeletePicture(ctx context.Context, adID, pictureID string) error
}

// Controller is the carousel of one listing. It is safe for concurrent use.
type Controller struct {
	mu       sync.Mutex
	adID     string
	primary  string
	photos   []models.Picture
	index    int
	expanded bool
	deleting string // id of the pending deletion, "" when none
}

// New builds a controller positioned on the first photo.
func New(adID, primaryURL string, pictures []models.Picture) *Controller {
	return &Controller{
		adID:    adID,
		primary: primaryURL,
		photos:  Arrange(primaryURL, pictures),
	}
}

// Snapshot is a copy of the controller state
type Snapshot struct {
	Photos   []models.Picture `json:"photos"`
	Index    int              `json:"index"`
	Expanded bool             `json:"expanded"`
	Deleting string           `json:"deleting,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Photos:   slices.Clone(c.photos),
		Index:    c.index,
		Expanded: c.expanded,
		Deleting: c.deleting,
	}
}

func (c *Controller) Photos() []models.Picture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.photos)
}

func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.photos)
}

// Current returns the photo on display.
func (c *Controller) Current() (models.Picture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.photos) == 0 {
		return models.Picture{}, false
	}
	return c.photos[c.index], true
}

// Next moves forward, wrapping to the first photo.
func (c *Controller) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.photos); n > 0 {
		c.index = (c.index + 1) % n
	}
	return c.index
}

// Prev moves back, wrapping to the last photo.
func (c *Controller) Prev() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.photos); n > 0 {
		c.index = (c.index - 1 + n) % n
	}
	return c.index
}

// Select jumps to a photo, typically from a thumbnail click.
func (c *Controller) Select(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.photos) {
		return ErrIndexOutOfRange
	}
	c.index = i
	return nil
}

// Expand toggles the full-screen view.
func (c *Controller) Expand(on bool) {
	c.mu.Lock()
	c.expanded = on
	c.mu.Unlock()
}

func (c *Controller) Expanded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded
}

// HandleKey applies a keyboard event and reports whether it was consumed.
func (c *Controller) HandleKey(key string) bool {
	switch key {
	case KeyLeft:
		c.Prev()
	case KeyRight:
		c.Next()
	case KeyEscape:
		if !c.Expanded() {
			return false
		}
		c.Expand(false)
	default:
		return false
	}
	return true
}

// DeleteCurrent deletes the photo on display through d. The primary photo is
// refused before any call, as is a second deletion while one is pending. The
// photo is dropped locally only once d confirms.
func (c *Controller) DeleteCurrent(ctx context.Context, d Deleter) (models.Picture, error) {
	c.mu.Lock()
	if len(c.photos) == 0 {
		c.mu.Unlock()
		return models.Picture{}, ErrEmpty
	}
	target := c.photos[c.index]
	if target.IsPrimary || target.PictureID == models.PrimaryPictureID {
		c.mu.Unlock()
		return models.Picture{}, ErrPrimaryPhoto
	}
	if c.deleting != "" {
		c.mu.Unlock()
		return models.Picture{}, ErrDeletionInFlight
	}
	c.deleting = target.PictureID
	adID := c.adID
	c.mu.Unlock()

	err := d.DeletePicture(ctx, adID, target.PictureID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleting = ""
	if err != nil {
		return models.Picture{}, err
	}
	c.remove(target.PictureID)
	return target, nil
}

// allPhotos marks a pending bulk deletion in the deleting slot.
const allPhotos = "*"

// DeleteAll runs fn while holding the deletion slot, so no single deletion
// can interleave with a bulk one. fn is expected to re-fetch the photo list
// and Reset the controller before returning.
func (c *Controller) DeleteAll(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	if c.deleting != "" {
		c.mu.Unlock()
		return ErrDeletionInFlight
	}
	c.deleting = allPhotos
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.deleting = ""
		c.mu.Unlock()
	}()
	return fn(ctx)
}

// remove drops a photo by id and keeps the index on a valid photo. Callers hold mu.
func (c *Controller) remove(id string) {
	at := slices.IndexFunc(c.photos, func(p models.Picture) bool { return p.PictureID == id })
	if at < 0 {
		return
	}
	c.photos = slices.Delete(c.photos, at, at+1)
	if at < c.index {
		c.index--
	}
	c.clamp()
}

func (c *Controller) clamp() {
	if c.index >= len(c.photos) {
		c.index = max(0, len(c.photos)-1)
	}
	if c.index < 0 {
		c.index = 0
	}
}

// Reset replaces the photo list after a re-fetch. The index is kept when it
// still points at a photo.
func (c *Controller) Reset(pictures []models.Picture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photos = Arrange(c.primary, pictures)
	c.clamp()
}

// Deleting reports whether a deletion is pending.
func (c *Controller) Deleting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleting != ""
}
