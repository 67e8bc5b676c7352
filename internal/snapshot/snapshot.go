package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
	"gorm.io/gorm"
)

// Service persists listing changes detected between refreshes
type Service struct {
	db *gorm.DB
}

// NewService creates a new snapshot service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Diff compares two listing collections and returns what changed, new and
// removed listings included. Changes come out in the order of next, removed
// listings last in the order of prev.
func Diff(prev, next []models.Listing, now time.Time) []models.ListingChange {
	changes := []models.ListingChange{}

	before := make(map[string]*models.Listing, len(prev))
	for i := range prev {
		before[prev[i].ID] = &prev[i]
	}
	seen := make(map[string]bool, len(next))

	for i := range next {
		cur := &next[i]
		seen[cur.ID] = true
		old, exists := before[cur.ID]
		if !exists {
			changes = append(changes, models.ListingChange{
				ListingID:  cur.ID,
				ChangeType: models.ChangeTypeNew,
				NewValue:   cur.Name,
				DetectedAt: now,
			})
			continue
		}
		changes = append(changes, compare(old, cur, now)...)
	}

	for i := range prev {
		if !seen[prev[i].ID] {
			changes = append(changes, models.ListingChange{
				ListingID:  prev[i].ID,
				ChangeType: models.ChangeTypeRemoved,
				OldValue:   prev[i].Name,
				DetectedAt: now,
			})
		}
	}
	return changes
}

func compare(old, cur *models.Listing, now time.Time) []models.ListingChange {
	var changes []models.ListingChange
	add := func(kind, oldVal, newVal string, magnitude *float64) {
		changes = append(changes, models.ListingChange{
			ListingID:       cur.ID,
			ChangeType:      kind,
			OldValue:        oldVal,
			NewValue:        newVal,
			ChangeMagnitude: magnitude,
			DetectedAt:      now,
		})
	}

	// Price change
	if !float64PtrEqual(old.Price, cur.Price) {
		var magnitude *float64
		if old.Price != nil && cur.Price != nil {
			d := *cur.Price - *old.Price
			magnitude = &d
		}
		add(models.ChangeTypePrice, formatFloat(old.Price), formatFloat(cur.Price), magnitude)
	}

	if old.Status != cur.Status {
		add(models.ChangeTypeStatus, old.Status, cur.Status, nil)
	}

	if !timePtrEqual(old.ViewDate, cur.ViewDate) {
		add(models.ChangeTypeViewDate, formatTime(old.ViewDate), formatTime(cur.ViewDate), nil)
	}

	if !float64PtrEqual(old.Space, cur.Space) {
		add(models.ChangeTypeSpace, formatFloat(old.Space), formatFloat(cur.Space), nil)
	}

	if old.EnergyClass != cur.EnergyClass {
		add(models.ChangeTypeEnergy, old.EnergyClass, cur.EnergyClass, nil)
	}

	// Image change
	if old.FirstPhoto != cur.FirstPhoto {
		add(models.ChangeTypePhoto, old.FirstPhoto, cur.FirstPhoto, nil)
	}

	return changes
}

// SaveChanges saves detected changes to the database
func (s *Service) SaveChanges(ctx context.Context, changes []models.ListingChange) error {
	if len(changes) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(&changes, 200).Error
}

// GetRecentChanges retrieves recent listing changes
func (s *Service) GetRecentChanges(ctx context.Context, limit int) ([]models.ListingChange, error) {
	var changes []models.ListingChange
	query := s.db.WithContext(ctx).Order("detected_at DESC").Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, err
	}

	return changes, nil
}

// GetListingHistory retrieves the changes of one listing, newest first
func (s *Service) GetListingHistory(ctx context.Context, listingID string, limit int) ([]models.ListingChange, error) {
	var changes []models.ListingChange
	query := s.db.WithContext(ctx).Where("listing_id = ?", listingID).Order("detected_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, err
	}

	return changes, nil
}

// Helper functions
func float64PtrEqual(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "nil"
	}
	return t.UTC().Format(time.RFC3339)
}
