package store

import (
	"testing"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing(id, name string) models.Listing {
	return models.Listing{ID: id, Name: name}
}

func TestReplaceDropsDuplicates(t *testing.T) {
	s := New()
	dups := s.Replace([]models.Listing{listing("1", "a"), listing("2", "b"), listing("1", "c")})

	assert.Equal(t, []string{"1"}, dups)
	require.Equal(t, 2, s.Len())

	l, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "a", l.Name, "first occurrence wins")
	assert.False(t, s.FetchedAt().IsZero())
}

func TestAllReturnsCopy(t *testing.T) {
	s := New()
	s.Replace([]models.Listing{listing("1", "a")})

	all := s.All()
	all[0].Name = "mutated"

	l, _ := s.Get("1")
	assert.Equal(t, "a", l.Name)
}

func TestRemoveReindexes(t *testing.T) {
	s := New()
	s.Replace([]models.Listing{listing("1", "a"), listing("2", "b"), listing("3", "c")})
	before := s.All()

	assert.True(t, s.Remove("2"))
	assert.False(t, s.Remove("2"))

	l, ok := s.Get("3")
	require.True(t, ok)
	assert.Equal(t, "c", l.Name)
	assert.Equal(t, []models.Listing{listing("1", "a"), listing("3", "c")}, s.All())
	assert.Len(t, before, 3, "earlier snapshots are unaffected")
}

func TestPatch(t *testing.T) {
	s := New()
	s.Replace([]models.Listing{listing("1", "a")})

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ok := s.Patch("1", func(l *models.Listing) {
		l.Status = models.StatusViewBooked
		l.ViewDate = &date
		l.ID = "ignored"
	})
	require.True(t, ok)

	l, _ := s.Get("1")
	assert.Equal(t, models.StatusViewBooked, l.Status)
	assert.Equal(t, &date, l.ViewDate)
	assert.False(t, s.Patch("missing", func(*models.Listing) {}))
}

func TestUpsert(t *testing.T) {
	s := New()
	s.Upsert(listing("1", "a"))
	s.Upsert(listing("1", "b"))
	s.Upsert(listing("2", "c"))

	assert.Equal(t, 2, s.Len())
	l, _ := s.Get("1")
	assert.Equal(t, "b", l.Name)
}
