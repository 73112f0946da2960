// Package search answers marker, detail and nearby queries over the restaurant dataset.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/observability"
)

// DefaultRadiusKm is used when a nearby request omits the radius.
const DefaultRadiusKm = 1.0

// RadiusTiers are the radius choices offered to clients. Any positive radius is accepted.
var RadiusTiers = []float64{0.5, 1.0, 3.0}

// Service combines the POI repository, the session store and the distance engine.
type Service struct {
	repo      domain.POIRepository
	sessions  domain.SessionStore
	publisher domain.LocationPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a search service. publisher may be nil to disable location
// events; a nil clock means the wall clock.
func New(repo domain.POIRepository, sessions domain.SessionStore, publisher domain.LocationPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:      repo,
		sessions:  sessions,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// ListAll returns every POI in the dataset.
func (s *Service) ListAll(ctx context.Context) ([]domain.POI, error) {
	pois, err := s.repo.All(ctx)
	if err != nil {
		s.datasetError(err)
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	if pois == nil {
		pois = []domain.POI{}
	}
	return pois, nil
}

// GetDetail returns one POI or an error wrapping domain.ErrNotFound.
func (s *Service) GetDetail(ctx context.Context, id int64) (domain.POI, error) {
	poi, err := s.repo.ByID(ctx, id)
	if err != nil {
		s.datasetError(err)
		return domain.POI{}, fmt.Errorf("restaurant %d: %w", id, err)
	}
	return poi, nil
}

// Nearby ranks the dataset around the session's stored coordinate. A session
// without a stored location gets an empty list.
func (s *Service) Nearby(ctx context.Context, sessionID string, radiusKm float64, category domain.Category) ([]domain.RankedResult, error) {
	if !(radiusKm > 0) {
		return nil, fmt.Errorf("%w: radius must be positive, got %v", domain.ErrInvalidArgument, radiusKm)
	}

	loc, ok, err := s.sessions.GetLocation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session location: %w", err)
	}
	if !ok {
		s.observeResults(0)
		return []domain.RankedResult{}, nil
	}

	pois, err := s.repo.All(ctx)
	if err != nil {
		s.datasetError(err)
		return nil, fmt.Errorf("nearby restaurants: %w", err)
	}

	results := domain.FilterNearbyCategory(&loc.Coordinate, radiusKm, category, pois)
	s.observeResults(len(results))
	s.logger.Debug("nearby search",
		"session_id", sessionID,
		"radius_km", radiusKm,
		"category", string(category),
		"results", len(results),
	)
	return results, nil
}

// SetLocation validates and stores the session's coordinate, then announces it.
// Publishing is best effort.
func (s *Service) SetLocation(ctx context.Context, sessionID string, c domain.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.sessions.SetLocation(ctx, sessionID, c); err != nil {
		return fmt.Errorf("store location: %w", err)
	}
	if s.metrics != nil {
		s.metrics.LocationUpdates.Inc()
	}

	if s.publisher == nil {
		return nil
	}
	loc := domain.SessionLocation{SessionID: sessionID, Coordinate: c, UpdatedAt: s.clock.Now()}
	if err := s.publisher.PublishLocation(ctx, loc); err != nil {
		s.logger.Warn("location event publish failed", "session_id", sessionID, "error", err)
		s.eventOutcome("error")
		return nil
	}
	s.eventOutcome("success")
	return nil
}

// CheckReadiness reports whether the dataset, and the session store when it
// is remote, can be reached.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return err
	}
	if p, ok := s.sessions.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Service) datasetError(err error) {
	if !errors.Is(err, domain.ErrUnavailable) {
		return
	}
	s.logger.Error("dataset unavailable", "error", err)
	if s.metrics != nil {
		s.metrics.DatasetErrors.Inc()
	}
}

func (s *Service) observeResults(n int) {
	if s.metrics != nil {
		s.metrics.NearbyResults.Observe(float64(n))
	}
}

func (s *Service) eventOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.LocationEvents.WithLabelValues(outcome).Inc()
	}
}
