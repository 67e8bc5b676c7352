// Package editor implements the status and viewing-date edit session of a
// listing: a draft buffer with save and cancel around one remote update.
package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
)

// Mode of an edit session
type Mode string

const (
	Viewing Mode = "viewing"
	Editing Mode = "editing"
)

var (
	ErrNotEditing   = errors.New("no edit in progress")
	ErrSaveInFlight = errors.New("a save is already in progress")
)

// Values are the two remotely editable fields
type Values struct {
	Status   string     `json:"status"`
	ViewDate *time.Time `json:"viewDate"`
}

// Updater persists committed values for a listing
type Updater interface {
	UpdateStatus(ctx context.Context, id string, v Values) error
}

// UpdaterFunc adapts a function to Updater.
type UpdaterFunc func(ctx context.Context, id string, v Values) error

func (f UpdaterFunc) UpdateStatus(ctx context.Context, id string, v Values) error {
	return f(ctx, id, v)
}

// Resolve applies the cross-field rule to a draft: a scheduled viewing sets
// the "View booked" tag, and clearing the date drops that tag.
func Resolve(draft Values) Values {
	out := draft
	if draft.ViewDate != nil {
		out.Status = models.StatusViewBooked
	} else if draft.Status == models.StatusViewBooked {
		out.Status = ""
	}
	return out
}

// Editor holds the committed values of one listing and the draft of an
// ongoing edit. It is safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	id        string
	committed Values
	draft     Values
	mode      Mode
	saving    bool
}

// New starts in Viewing mode with the listing's current values.
func New(l models.Listing) *Editor {
	v := Values{Status: l.Status, ViewDate: cloneTime(l.ViewDate)}
	return &Editor{id: l.ID, committed: v, draft: v, mode: Viewing}
}

// State is a copy of the editor for rendering
type State struct {
	Mode      Mode   `json:"mode"`
	Committed Values `json:"committed"`
	Draft     Values `json:"draft"`
	Saving    bool   `json:"saving"`
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Mode: e.mode, Committed: e.committed, Draft: e.draft, Saving: e.saving}
}

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Committed returns the last values confirmed by the API.
func (e *Editor) Committed() Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed
}

// Begin enters Editing with the draft seeded from the committed values.
// Calling it while already editing keeps the current draft.
func (e *Editor) Begin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == Editing {
		return
	}
	e.draft = Values{Status: e.committed.Status, ViewDate: cloneTime(e.committed.ViewDate)}
	e.mode = Editing
}

func (e *Editor) SetStatus(status string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Editing {
		return ErrNotEditing
	}
	e.draft.Status = status
	return nil
}

// SetViewDate sets or, with nil, clears the drafted viewing date.
func (e *Editor) SetViewDate(t *time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Editing {
		return ErrNotEditing
	}
	e.draft.ViewDate = cloneTime(t)
	return nil
}

// Save resolves the draft, sends it through u and, once confirmed, commits
// both fields together and returns to Viewing. On failure nothing is
// committed and the session stays in Editing.
func (e *Editor) Save(ctx context.Context, u Updater) (Values, error) {
	e.mu.Lock()
	if e.mode != Editing {
		e.mu.Unlock()
		return Values{}, ErrNotEditing
	}
	if e.saving {
		e.mu.Unlock()
		return Values{}, ErrSaveInFlight
	}
	e.saving = true
	next := Resolve(e.draft)
	id := e.id
	e.mu.Unlock()

	err := u.UpdateStatus(ctx, id, next)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	if err != nil {
		return Values{}, err
	}
	e.committed = next
	e.draft = next
	e.mode = Viewing
	return next, nil
}

// Cancel drops the draft and returns to Viewing.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = e.committed
	e.mode = Viewing
}

// Sync replaces the committed values after a re-fetch. An ongoing edit keeps its draft.
func (e *Editor) Sync(l models.Listing) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.committed = Values{Status: l.Status, ViewDate: cloneTime(l.ViewDate)}
	if e.mode == Viewing {
		e.draft = e.committed
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
