package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []Values
	err   error
	block chan struct{}
}

func (r *recorder) UpdateStatus(ctx context.Context, id string, v Values) error {
	if r.block != nil {
		<-r.block
	}
	r.calls = append(r.calls, v)
	return r.err
}

func day(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func TestSaveWithDateSetsViewBooked(t *testing.T) {
	e := New(models.Listing{ID: "1", Status: "Interested"})
	e.Begin()
	require.NoError(t, e.SetViewDate(day("2024-05-01")))

	r := &recorder{}
	got, err := e.Save(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, models.StatusViewBooked, got.Status)
	require.Len(t, r.calls, 1)
	assert.Equal(t, models.StatusViewBooked, r.calls[0].Status)
	assert.Equal(t, day("2024-05-01"), r.calls[0].ViewDate)
	assert.Equal(t, Viewing, e.Mode())
	assert.Equal(t, got, e.Committed())
}

func TestSaveClearingDateClearsViewBooked(t *testing.T) {
	e := New(models.Listing{ID: "1", Status: models.StatusViewBooked, ViewDate: day("2024-05-01")})
	e.Begin()
	require.NoError(t, e.SetViewDate(nil))

	r := &recorder{}
	got, err := e.Save(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, Values{}, got)
	assert.Equal(t, Values{}, r.calls[0])
}

func TestSaveWithoutDateKeepsOtherStatus(t *testing.T) {
	e := New(models.Listing{ID: "1"})
	e.Begin()
	require.NoError(t, e.SetStatus("Offer made"))

	got, err := e.Save(context.Background(), &recorder{})
	require.NoError(t, err)
	assert.Equal(t, "Offer made", got.Status)
	assert.Nil(t, got.ViewDate)
}

func TestFailedSaveStaysEditing(t *testing.T) {
	e := New(models.Listing{ID: "1", Status: "View"})
	e.Begin()
	require.NoError(t, e.SetViewDate(day("2024-05-01")))

	_, err := e.Save(context.Background(), &recorder{err: errors.New("bad gateway")})
	assert.EqualError(t, err, "bad gateway")

	st := e.State()
	assert.Equal(t, Editing, st.Mode)
	assert.Equal(t, "View", st.Committed.Status)
	assert.Nil(t, st.Committed.ViewDate)
	assert.Equal(t, day("2024-05-01"), st.Draft.ViewDate)
	assert.False(t, st.Saving)

	// retry succeeds
	_, err = e.Save(context.Background(), &recorder{})
	require.NoError(t, err)
	assert.Equal(t, Viewing, e.Mode())
}

func TestCancelRevertsDraft(t *testing.T) {
	e := New(models.Listing{ID: "1", Status: "View"})
	e.Begin()
	require.NoError(t, e.SetStatus("Rejected"))
	e.Cancel()

	st := e.State()
	assert.Equal(t, Viewing, st.Mode)
	assert.Equal(t, "View", st.Draft.Status)
	assert.ErrorIs(t, e.SetStatus("x"), ErrNotEditing)
	_, err := e.Save(context.Background(), &recorder{})
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestConcurrentSaveIsRejected(t *testing.T) {
	e := New(models.Listing{ID: "1"})
	e.Begin()

	r := &recorder{block: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := e.Save(context.Background(), r)
		done <- err
	}()

	require.Eventually(t, func() bool { return e.State().Saving }, 5*time.Second, time.Millisecond)
	_, err := e.Save(context.Background(), UpdaterFunc(func(context.Context, string, Values) error { return nil }))
	assert.ErrorIs(t, err, ErrSaveInFlight)

	close(r.block)
	require.NoError(t, <-done)
}

func TestSyncKeepsDraftWhileEditing(t *testing.T) {
	e := New(models.Listing{ID: "1", Status: "View"})
	e.Begin()
	require.NoError(t, e.SetStatus("Offer made"))

	e.Sync(models.Listing{ID: "1", Status: "Rejected"})
	st := e.State()
	assert.Equal(t, "Rejected", st.Committed.Status)
	assert.Equal(t, "Offer made", st.Draft.Status)
}
