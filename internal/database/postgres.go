package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/lib/pq"
)

// DB is the PostgreSQL listing cache
type DB struct {
	conn *sql.DB
}

// PostgresDSN builds the lib/pq connection string.
func PostgresDSN(host, port, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

func NewDB(host, port, user, password, dbname string) (*DB, error) {
	conn, err := sql.Open("postgres", PostgresDSN(host, port, user, password, dbname))
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the listings table if it doesn't exist
func (db *DB) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(32) PRIMARY KEY,
		link TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		location VARCHAR(255) NOT NULL DEFAULT '',

		price DECIMAL(12, 2),
		space DECIMAL(10, 2),
		terrain DECIMAL(10, 2),
		rooms DECIMAL(5, 1),

		energy_class VARCHAR(10) NOT NULL DEFAULT '',
		first_photo TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		status VARCHAR(100) NOT NULL DEFAULT '',
		view_date TIMESTAMPTZ,

		fetched_at TIMESTAMPTZ NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
	CREATE INDEX IF NOT EXISTS idx_listings_location ON listings(location);
	`
	_, err := db.conn.Exec(query)
	return err
}

// SaveListings mirrors the collection into the listings table in one
// transaction, keeping API order in the position column.
func (db *DB) SaveListings(ctx context.Context, listings []models.Listing) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO listings (
		id, link, name, location,
		price, space, terrain, rooms,
		energy_class, first_photo, description, status, view_date,
		fetched_at, position
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id) DO UPDATE SET
		link = EXCLUDED.link,
		name = EXCLUDED.name,
		location = EXCLUDED.location,
		price = EXCLUDED.price,
		space = EXCLUDED.space,
		terrain = EXCLUDED.terrain,
		rooms = EXCLUDED.rooms,
		energy_class = EXCLUDED.energy_class,
		first_photo = EXCLUDED.first_photo,
		description = EXCLUDED.description,
		status = EXCLUDED.status,
		view_date = EXCLUDED.view_date,
		fetched_at = EXCLUDED.fetched_at,
		position = EXCLUDED.position
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ids := make([]string, 0, len(listings))
	for i, l := range listings {
		fetched := l.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			l.ID, l.Link, l.Name, l.Location,
			nullFloat(l.Price), nullFloat(l.Space), nullFloat(l.Terrain), nullFloat(l.Rooms),
			l.EnergyClass, l.FirstPhoto, l.Description, l.Status, nullTime(l.ViewDate),
			fetched, i)
		if err != nil {
			return fmt.Errorf("failed to save listing %s: %w", l.ID, err)
		}
		ids = append(ids, l.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE NOT (id = ANY($1))`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to prune listings: %w", err)
	}
	return tx.Commit()
}

// LoadListings returns the cached collection in API order.
func (db *DB) LoadListings(ctx context.Context) ([]models.Listing, error) {
	query := `
		SELECT id, link, name, location,
			   price, space, terrain, rooms,
			   energy_class, first_photo, description, status, view_date,
			   fetched_at
		FROM listings
		ORDER BY position ASC, id ASC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var (
			l                            models.Listing
			price, space, terrain, rooms sql.NullFloat64
			viewDate                     sql.NullTime
		)
		err := rows.Scan(
			&l.ID, &l.Link, &l.Name, &l.Location,
			&price, &space, &terrain, &rooms,
			&l.EnergyClass, &l.FirstPhoto, &l.Description, &l.Status, &viewDate,
			&l.FetchedAt,
		)
		if err != nil {
			return nil, err
		}
		l.Price = floatPtr(price)
		l.Space = floatPtr(space)
		l.Terrain = floatPtr(terrain)
		l.Rooms = floatPtr(rooms)
		l.ViewDate = timePtr(viewDate)
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
