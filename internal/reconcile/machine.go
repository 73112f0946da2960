// Package reconcile decides which input channel owns the displayed coordinate
// and keeps the viewport and result list in step with it.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/regions"
)

// DefaultGeolocationTimeout bounds a single device position request.
const DefaultGeolocationTimeout = 5 * time.Second

// DefaultRadiusKm is the radius used until SetRadius is called.
const DefaultRadiusKm = 1.0

// Source identifies the input channel that currently owns the coordinate.
type Source int

const (
	SourceInit Source = iota
	SourceURL
	SourceGeolocation
	SourceRegionSelector
	SourceMapDrag
	SourceExternalList
)

func (s Source) String() string {
	switch s {
	case SourceURL:
		return "url"
	case SourceGeolocation:
		return "geolocation"
	case SourceRegionSelector:
		return "region_selector"
	case SourceMapDrag:
		return "map_drag"
	case SourceExternalList:
		return "external_list"
	default:
		return "init"
	}
}

// Viewport is the map surface. It only accepts a center, markers and a detail panel.
type Viewport interface {
	SetCenter(c domain.Coordinate)
	ShowResults(results []domain.RankedResult)
	ShowDetail(poi domain.POI)
	CloseDetail()
}

// Geolocator answers a single device position request.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (domain.Coordinate, error)
}

// Search is the server-side surface the machine drives for the current session.
type Search interface {
	SetLocation(ctx context.Context, c domain.Coordinate) error
	Nearby(ctx context.Context, radiusKm float64, category domain.Category) ([]domain.RankedResult, error)
	Detail(ctx context.Context, id int64) (domain.POI, error)
}

// State is a snapshot of the machine.
type State struct {
	Source     Source
	Coordinate domain.Coordinate
	Province   string
	District   string
	RadiusKm   float64
	Category   domain.Category
	Results    []domain.RankedResult
	Detail     *domain.POI
}

// Options configures a Machine. Zero values pick defaults.
type Options struct {
	Clock              clockwork.Clock
	GeolocationTimeout time.Duration
	Logger             *slog.Logger
}

// Machine is the single writer of the displayed location. Each coordinate
// transition takes a new generation; its location push and nearby answer are
// dropped once a later transition has started. Pushes are serialized so the
// session store always ends on the latest coordinate.
type Machine struct {
	mu    sync.Mutex
	state State
	gen   uint64 // coordinate transitions
	seq   uint64 // nearby requests

	pushMu sync.Mutex

	regions    *regions.Table
	search     Search
	viewport   Viewport
	geolocator Geolocator
	clock      clockwork.Clock
	geoTimeout time.Duration
	logger     *slog.Logger
}

// New creates a machine in the init state.
func New(table *regions.Table, search Search, viewport Viewport, geolocator Geolocator, opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.GeolocationTimeout <= 0 {
		opts.GeolocationTimeout = DefaultGeolocationTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Machine{
		state:      State{Source: SourceInit, RadiusKm: DefaultRadiusKm},
		regions:    table,
		search:     search,
		viewport:   viewport,
		geolocator: geolocator,
		clock:      opts.Clock,
		geoTimeout: opts.GeolocationTimeout,
		logger:     opts.Logger,
	}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Results = slices.Clone(m.state.Results)
	if m.state.Detail != nil {
		d := *m.state.Detail
		s.Detail = &d
	}
	return s
}

// Start leaves init. An explicit coordinate (from the URL) becomes
// authoritative; otherwise the first province and its first district are selected.
func (m *Machine) Start(ctx context.Context, urlCoord *domain.Coordinate) error {
	if urlCoord != nil {
		if err := urlCoord.Validate(); err != nil {
			return err
		}
		return m.moveTo(ctx, SourceURL, *urlCoord, regions.All, regions.All)
	}
	provinces := m.regions.Provinces()
	if len(provinces) == 0 {
		return m.moveTo(ctx, SourceRegionSelector, m.regions.Default(), regions.All, regions.All)
	}
	return m.selectRegion(ctx, provinces[0], m.regions.FirstDistrict(provinces[0]))
}

// SelectProvince switches to province p and resets the district to its first entry.
func (m *Machine) SelectProvince(ctx context.Context, p string) error {
	return m.selectRegion(ctx, p, m.regions.FirstDistrict(p))
}

// SelectDistrict switches to district d within the current province.
func (m *Machine) SelectDistrict(ctx context.Context, d string) error {
	m.mu.Lock()
	p := m.state.Province
	m.mu.Unlock()
	return m.selectRegion(ctx, p, d)
}

func (m *Machine) selectRegion(ctx context.Context, province, district string) error {
	return m.moveTo(ctx, SourceRegionSelector, m.regions.Lookup(province, district), province, district)
}

// UseCurrentPosition asks the device for its position once. On failure the
// state is left untouched and a *GeolocationError is returned.
func (m *Machine) UseCurrentPosition(ctx context.Context) error {
	coord, err := m.locate(ctx)
	if err != nil {
		m.logger.Warn("geolocation failed", "error", err)
		return err
	}
	return m.moveTo(ctx, SourceGeolocation, coord, regions.All, regions.All)
}

func (m *Machine) locate(ctx context.Context) (domain.Coordinate, error) {
	ctx, cancel := clockwork.WithTimeout(ctx, m.clock, m.geoTimeout)
	defer cancel()

	type result struct {
		coord domain.Coordinate
		err   error
	}
	done := make(chan result, 1)
	go func() {
		c, err := m.geolocator.CurrentPosition(ctx)
		done <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Coordinate{}, &GeolocationError{Kind: GeolocationTimeout, Err: ctx.Err()}
		}
		return domain.Coordinate{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return domain.Coordinate{}, classifyGeolocation(r.err)
		}
		if err := r.coord.Validate(); err != nil {
			return domain.Coordinate{}, &GeolocationError{Kind: GeolocationUnavailable, Err: err}
		}
		return r.coord, nil
	}
}

// DragEnd takes the viewport center reported at the end of a drag.
func (m *Machine) DragEnd(ctx context.Context, center domain.Coordinate) error {
	if err := center.Validate(); err != nil {
		return err
	}
	return m.moveTo(ctx, SourceMapDrag, center, regions.All, regions.All)
}

// ShowExternalList displays a ranked list supplied by another component
// verbatim. No nearby query is made.
func (m *Machine) ShowExternalList(_ context.Context, results []domain.RankedResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Source == SourceExternalList && slices.Equal(m.state.Results, results) {
		return nil
	}
	m.gen++
	m.state.Source = SourceExternalList
	m.state.Results = slices.Clone(results)
	m.closeDetailLocked()
	if len(results) > 0 {
		m.state.Coordinate = results[0].POI.Coordinate
		m.viewport.SetCenter(m.state.Coordinate)
	}
	m.viewport.ShowResults(slices.Clone(results))
	m.logger.Info("source changed", "source", SourceExternalList.String(), "results", len(results))
	return nil
}

// SetRadius changes the search radius and re-queries around the current coordinate.
func (m *Machine) SetRadius(ctx context.Context, radiusKm float64) error {
	if !(radiusKm > 0) {
		return fmt.Errorf("%w: radius must be positive, got %v", domain.ErrInvalidArgument, radiusKm)
	}
	m.mu.Lock()
	if m.state.RadiusKm == radiusKm {
		m.mu.Unlock()
		return nil
	}
	m.state.RadiusKm = radiusKm
	requery := m.state.Source != SourceInit && m.state.Source != SourceExternalList
	gen := m.gen
	m.mu.Unlock()

	if !requery {
		return nil
	}
	return m.refresh(ctx, gen)
}

// SetCategory restricts nearby results to one category. Empty means all.
func (m *Machine) SetCategory(ctx context.Context, category domain.Category) error {
	m.mu.Lock()
	if m.state.Category == category {
		m.mu.Unlock()
		return nil
	}
	m.state.Category = category
	requery := m.state.Source != SourceInit && m.state.Source != SourceExternalList
	gen := m.gen
	m.mu.Unlock()

	if !requery {
		return nil
	}
	return m.refresh(ctx, gen)
}

// OpenDetail loads a restaurant and opens the detail panel. The next
// transition closes it.
func (m *Machine) OpenDetail(ctx context.Context, id int64) error {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	poi, err := m.search.Detail(ctx, id)
	if err != nil {
		return fmt.Errorf("open detail %d: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil
	}
	m.state.Detail = &poi
	m.viewport.ShowDetail(poi)
	return nil
}

// moveTo is the common path for every coordinate-bearing transition.
func (m *Machine) moveTo(ctx context.Context, src Source, coord domain.Coordinate, province, district string) error {
	m.mu.Lock()
	if m.state.Source == src && m.state.Coordinate == coord &&
		m.state.Province == province && m.state.District == district {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	m.state.Source = src
	m.state.Coordinate = coord
	m.state.Province = province
	m.state.District = district
	m.closeDetailLocked()
	m.viewport.SetCenter(coord)
	m.mu.Unlock()

	m.logger.Info("source changed", "source", src.String(), "coordinate", coord.String(), "province", province, "district", district)

	if err := m.push(ctx, gen, coord); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen {
			return nil
		}
		m.state.Results = nil
		m.viewport.ShowResults(nil)
		return fmt.Errorf("push location: %w", err)
	}
	return m.refresh(ctx, gen)
}

// push stores coord for the session unless generation gen has been superseded.
func (m *Machine) push(ctx context.Context, gen uint64, coord domain.Coordinate) error {
	m.pushMu.Lock()
	defer m.pushMu.Unlock()
	if !m.current(gen) {
		m.logger.Debug("skipping superseded location push", "generation", gen)
		return nil
	}
	return m.search.SetLocation(ctx, coord)
}

// refresh re-runs nearby for generation gen. The answer is applied only if gen
// is still current and no later nearby request was issued.
func (m *Machine) refresh(ctx context.Context, gen uint64) error {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	m.seq++
	seq := m.seq
	radius, category := m.state.RadiusKm, m.state.Category
	m.mu.Unlock()

	results, err := m.search.Nearby(ctx, radius, category)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || seq != m.seq {
		m.logger.Debug("discarding stale nearby response", "generation", gen, "current", m.gen)
		return nil
	}
	if err != nil {
		m.state.Results = nil
		m.viewport.ShowResults(nil)
		return fmt.Errorf("nearby: %w", err)
	}
	m.state.Results = results
	m.viewport.ShowResults(slices.Clone(results))
	return nil
}

func (m *Machine) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func (m *Machine) closeDetailLocked() {
	if m.state.Detail != nil {
		m.state.Detail = nil
		m.viewport.CloseDetail()
	}
}
