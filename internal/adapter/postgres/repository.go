// Package postgres reads the restaurant dataset from PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matjip-map/discovery-service/internal/domain"
)

const (
	selectColumns = `SELECT id, COALESCE(name, ''), COALESCE(category, ''), lat, lng,
		COALESCE(address, ''), COALESCE(score, 0) FROM restaurant_info`

	selectAll  = selectColumns + ` ORDER BY id`
	selectByID = selectColumns + ` WHERE id = $1`
)

// Repository implements domain.POIRepository over the restaurant_info table.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects a pool to databaseURL and verifies it with a ping.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w: %w", domain.ErrUnavailable, err)
	}
	logger.Info("postgres dataset connected")
	return &Repository{pool: pool, logger: logger}, nil
}

// All returns every restaurant ordered by id.
func (r *Repository) All(ctx context.Context) ([]domain.POI, error) {
	rows, err := r.pool.Query(ctx, selectAll)
	if err != nil {
		return nil, fmt.Errorf("query restaurants: %w: %w", domain.ErrUnavailable, err)
	}
	pois, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.POI, error) {
		return scanPOI(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan restaurants: %w: %w", domain.ErrUnavailable, err)
	}
	return pois, nil
}

// ByID returns one restaurant.
func (r *Repository) ByID(ctx context.Context, id int64) (domain.POI, error) {
	poi, err := scanPOI(r.pool.QueryRow(ctx, selectByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.POI{}, fmt.Errorf("restaurant %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.POI{}, fmt.Errorf("query restaurant %d: %w: %w", id, domain.ErrUnavailable, err)
	}
	return poi, nil
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

func scanPOI(row pgx.Row) (domain.POI, error) {
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
