package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormDB is the MySQL listing cache. It also owns the change log and delete
// log tables used by the snapshot and cleanup packages.
type GormDB struct {
	db *gorm.DB
}

// MySQLDSN builds the driver connection string.
func MySQLDSN(host, port, user, password, dbname string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)
}

func NewGormDB(host, port, user, password, dbname string, logLevel logger.LogLevel) (*GormDB, error) {
	db, err := gorm.Open(mysql.Open(MySQLDSN(host, port, user, password, dbname)), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db}, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Listing{},
		&models.ListingChange{},
		&models.DeleteLog{},
	)
}

// SaveListings makes the listings table mirror the given collection:
// rows are upserted by id and rows missing from the collection are removed.
func (gdb *GormDB) SaveListings(ctx context.Context, listings []models.Listing) error {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}

	return gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(listings) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).CreateInBatches(listings, 200).Error
			if err != nil {
				return fmt.Errorf("failed to upsert listings: %w", err)
			}
		}

		del := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if len(ids) > 0 {
			del = del.Where("id NOT IN ?", ids)
		}
		if err := del.Delete(&models.Listing{}).Error; err != nil {
			return fmt.Errorf("failed to prune listings: %w", err)
		}
		return nil
	})
}

// LoadListings returns the cached collection, oldest fetch first.
func (gdb *GormDB) LoadListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := gdb.db.WithContext(ctx).Order("fetched_at ASC").Order("id ASC").Find(&listings).Error
	return listings, err
}

// GetListing retrieves one cached listing by ID
func (gdb *GormDB) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	if err := gdb.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// LogDeletion records a listing removed through the dashboard.
func (gdb *GormDB) LogDeletion(ctx context.Context, entry *models.DeleteLog) error {
	if entry.DeletedAt.IsZero() {
		entry.DeletedAt = time.Now()
	}
	if entry.Reason == "" {
		entry.Reason = models.DeleteReasonManual
	}
	return gdb.db.WithContext(ctx).Create(entry).Error
}

// RecentDeletions returns the latest delete log entries.
func (gdb *GormDB) RecentDeletions(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	var logs []models.DeleteLog
	q := gdb.db.WithContext(ctx).Order("deleted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}
