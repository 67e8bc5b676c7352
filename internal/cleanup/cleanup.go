// Package cleanup prunes the change and delete logs kept in MySQL.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Service deletes log rows older than a retention window
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "cleanup").Logger(),
		now:    time.Now,
	}
}

// Config holds configuration for cleanup operations
type Config struct {
	RetentionDays    int  `json:"retention_days"`     // rows older than this are pruned (default: 90)
	MaxDeletionCount int  `json:"max_deletion_count"` // safety limit per table and run
	DryRun           bool `json:"dry_run"`            // only count, do not delete
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		RetentionDays:    90,
		MaxDeletionCount: 10000,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.RetentionDays <= 0 {
		c.RetentionDays = def.RetentionDays
	}
	if c.MaxDeletionCount <= 0 {
		c.MaxDeletionCount = def.MaxDeletionCount
	}
	return c
}

// Result holds the result of a cleanup operation
type Result struct {
	Cutoff         time.Time `json:"cutoff"`
	ChangesTarget  int64     `json:"changes_target"`
	ChangesDeleted int64     `json:"changes_deleted"`
	LogsTarget     int64     `json:"delete_logs_target"`
	LogsDeleted    int64     `json:"delete_logs_deleted"`
	DryRun         bool      `json:"dry_run"`
	ExecutedAt     time.Time `json:"executed_at"`
}

// Cutoff returns the oldest timestamp kept for a retention of days.
func Cutoff(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// Prune deletes listing changes and delete logs older than the retention
// window in one transaction.
func (s *Service) Prune(ctx context.Context, cfg Config) (*Result, error) {
	cfg = cfg.WithDefaults()
	now := s.now()
	result := &Result{
		Cutoff:     Cutoff(now, cfg.RetentionDays),
		DryRun:     cfg.DryRun,
		ExecutedAt: now,
	}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.ListingChange{}).
		Where("detected_at < ?", result.Cutoff).
		Count(&result.ChangesTarget).Error; err != nil {
		return nil, fmt.Errorf("failed to count expired changes: %w", err)
	}
	if err := db.Model(&models.DeleteLog{}).
		Where("deleted_at < ?", result.Cutoff).
		Count(&result.LogsTarget).Error; err != nil {
		return nil, fmt.Errorf("failed to count expired delete logs: %w", err)
	}

	// Safety check: abort if too many rows would be deleted
	if result.ChangesTarget > int64(cfg.MaxDeletionCount) || result.LogsTarget > int64(cfg.MaxDeletionCount) {
		return nil, fmt.Errorf("safety check failed: %d changes and %d delete logs exceed max deletion limit of %d",
			result.ChangesTarget, result.LogsTarget, cfg.MaxDeletionCount)
	}

	if cfg.DryRun {
		s.logger.Info().
			Time("cutoff", result.Cutoff).
			Int64("changes", result.ChangesTarget).
			Int64("delete_logs", result.LogsTarget).
			Msg("dry run: rows that would be pruned")
		return result, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("detected_at < ?", result.Cutoff).Delete(&models.ListingChange{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete expired changes: %w", res.Error)
		}
		result.ChangesDeleted = res.RowsAffected

		res = tx.Where("deleted_at < ?", result.Cutoff).Delete(&models.DeleteLog{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete expired delete logs: %w", res.Error)
		}
		result.LogsDeleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("changes", result.ChangesDeleted).
		Int64("delete_logs", result.LogsDeleted).
		Int("retention_days", cfg.RetentionDays).
		Msg("cleanup completed")
	return result, nil
}

// Run prunes with the given retention. It satisfies the scheduler's job signature.
func (s *Service) Run(ctx context.Context, retentionDays int) error {
	cfg := DefaultConfig()
	cfg.RetentionDays = retentionDays
	_, err := s.Prune(ctx, cfg)
	return err
}

// GetDeleteStats returns statistics about deleted listings
func (s *Service) GetDeleteStats(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)
	db := s.db.WithContext(ctx)

	var totalDeleted int64
	if err := db.Model(&models.DeleteLog{}).Count(&totalDeleted).Error; err != nil {
		return nil, err
	}
	stats["total_deleted"] = totalDeleted

	var reasonCounts []struct {
		Reason string
		Count  int64
	}
	if err := db.Model(&models.DeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&reasonCounts).Error; err != nil {
		return nil, err
	}
	reasonMap := make(map[string]int64)
	for _, rc := range reasonCounts {
		reasonMap[rc.Reason] = rc.Count
	}
	stats["by_reason"] = reasonMap

	var recentDeleted int64
	if err := db.Model(&models.DeleteLog{}).
		Where("deleted_at >= ?", Cutoff(s.now(), 30)).
		Count(&recentDeleted).Error; err != nil {
		return nil, err
	}
	stats["deleted_last_30_days"] = recentDeleted

	var changes int64
	if err := db.Model(&models.ListingChange{}).Count(&changes).Error; err != nil {
		return nil, err
	}
	stats["changes_logged"] = changes

	return stats, nil
}
