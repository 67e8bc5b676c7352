// Package store keeps the in-memory listing collection shared by the HTTP
// handlers, the CLI and the scheduler.
package store

import (
	"sync"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
)

// Store is the in-memory listing collection. It is refreshed wholesale from
// the ads API and patched locally after confirmed mutations.
type Store struct {
	mu        sync.RWMutex
	listings  []models.Listing
	index     map[string]int
	fetchedAt time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{index: map[string]int{}}
}

// Replace swaps the whole collection. Listing ids must be unique, so later
// duplicates are dropped and their ids returned.
func (s *Store) Replace(listings []models.Listing) (duplicates []string) {
	next := make([]models.Listing, 0, len(listings))
	index := make(map[string]int, len(listings))
	for _, l := range listings {
		if _, seen := index[l.ID]; seen {
			duplicates = append(duplicates, l.ID)
			continue
		}
		index[l.ID] = len(next)
		next = append(next, l)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = next
	s.index = index
	s.fetchedAt = time.Now()
	return duplicates
}

// All returns a copy of the collection in API order.
func (s *Store) All() []models.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Get returns the listing with the given id.
func (s *Store) Get(id string) (models.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Listing{}, false
	}
	return s.listings[i], true
}

// Len returns the number of listings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// FetchedAt returns when the collection was last replaced.
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Remove drops a listing after the API confirmed its deletion.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.listings = append(s.listings[:i:i], s.listings[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.listings); j++ {
		s.index[s.listings[j].ID] = j
	}
	return true
}

// Patch applies fn to the stored listing without a refetch.
func (s *Store) Patch(id string, fn func(*models.Listing)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	l := s.listings[i]
	fn(&l)
	l.ID = id
	s.listings[i] = l
	return true
}

// Upsert replaces the listing with the same id or appends it.
func (s *Store) Upsert(l models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[l.ID]; ok {
		s.listings[i] = l
		return
	}
	s.index[l.ID] = len(s.listings)
	s.listings = append(s.listings, l)
}
