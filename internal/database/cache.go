// Package database persists the last refreshed listing collection so the
// dashboard can start with data while the ads API is unreachable.
package database

import (
	"context"
	"fmt"

	"github.com/Fn-M/HousingManager/internal/models"
	"gorm.io/gorm/logger"
)

// ListingCache stores a copy of the listing collection
type ListingCache interface {
	SaveListings(ctx context.Context, listings []models.Listing) error
	LoadListings(ctx context.Context) ([]models.Listing, error)
	Close() error
}

// Supported cache backends
const (
	TypeNone     = "none"
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
)

// Options selects and addresses a cache backend
type Options struct {
	Type     string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	LogLevel string
}

// Open connects the configured backend and creates its schema. With type
// "none" it returns a nil cache and a nil *GormDB. The *GormDB is non-nil
// only for MySQL, which also carries the change and delete logs.
func Open(opts Options) (ListingCache, *GormDB, error) {
	switch opts.Type {
	case "", TypeNone:
		return nil, nil, nil
	case TypeMySQL:
		gdb, err := NewGormDB(opts.Host, opts.Port, opts.User, opts.Password, opts.Name, GormLogLevel(opts.LogLevel))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		if err := gdb.InitSchema(); err != nil {
			gdb.Close()
			return nil, nil, fmt.Errorf("failed to initialize MySQL schema: %w", err)
		}
		return gdb, gdb, nil
	case TypePostgres:
		db, err := NewDB(opts.Host, opts.Port, opts.User, opts.Password, opts.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL schema: %w", err)
		}
		return db, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown database type %q", opts.Type)
	}
}

// GormLogLevel maps an application log level to gorm's.
func GormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug", "trace":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent", "disabled":
		return logger.Silent
	default:
		return logger.Warn
	}
}
