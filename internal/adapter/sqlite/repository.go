// Package sqlite reads and seeds the restaurant dataset in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matjip-map/discovery-service/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	selectColumns = `SELECT id, COALESCE(name, ''), COALESCE(category, ''), lat, lng,
		COALESCE(address, ''), COALESCE(score, 0) FROM restaurant_info`

	upsertPOI = `INSERT INTO restaurant_info (id, name, category, lat, lng, address, score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			lat = excluded.lat,
			lng = excluded.lng,
			address = excluded.address,
			score = excluded.score`
)

// Repository implements domain.POIRepository over a SQLite restaurant_info table.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	r := &Repository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return r, nil
}

func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS restaurant_info (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			address TEXT,
			score REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_restaurant_category ON restaurant_info(category);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// All returns every restaurant ordered by id.
func (r *Repository) All(ctx context.Context) ([]domain.POI, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query restaurants: %w: %w", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	pois := make([]domain.POI, 0)
	for rows.Next() {
		poi, err := scanPOI(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restaurant: %w: %w", domain.ErrUnavailable, err)
		}
		pois = append(pois, poi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurants: %w: %w", domain.ErrUnavailable, err)
	}
	return pois, nil
}

// ByID returns one restaurant.
func (r *Repository) ByID(ctx context.Context, id int64) (domain.POI, error) {
	poi, err := scanPOI(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.POI{}, fmt.Errorf("restaurant %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.POI{}, fmt.Errorf("query restaurant %d: %w: %w", id, domain.ErrUnavailable, err)
	}
	return poi, nil
}

// Ping reports whether the database file is usable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping: %w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

// Upsert writes pois in one transaction, replacing rows with the same id.
func (r *Repository) Upsert(ctx context.Context, pois []domain.POI) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsertPOI)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pois {
		if err := p.Coordinate.Validate(); err != nil {
			return fmt.Errorf("restaurant %d: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, string(p.Category),
			p.Coordinate.Lat, p.Coordinate.Lng, p.Address, p.Score); err != nil {
			return fmt.Errorf("upsert restaurant %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPOI(row scanner) (domain.POI, error) {
	var (
		poi      domain.POI
		category string
	)
	err := row.Scan(
		&poi.ID,
		&poi.Name,
		&category,
		&poi.Coordinate.Lat,
		&poi.Coordinate.Lng,
		&poi.Address,
		&poi.Score,
	)
	if err != nil {
		return domain.POI{}, err
	}
	poi.Category = domain.ParseCategory(category)
	return poi, nil
}
