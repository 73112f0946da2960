package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/observability"
	"github.com/matjip-map/discovery-service/internal/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memRepo struct {
	pois []domain.POI
	err  error
}

func (r *memRepo) All(_ context.Context) ([]domain.POI, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.pois, nil
}

func (r *memRepo) ByID(_ context.Context, id int64) (domain.POI, error) {
	if r.err != nil {
		return domain.POI{}, r.err
	}
	for _, p := range r.pois {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.POI{}, domain.ErrNotFound
}

func (r *memRepo) Ping(_ context.Context) error { return r.err }

type recordingPublisher struct {
	events []domain.SessionLocation
	err    error
}

func (p *recordingPublisher) PublishLocation(_ context.Context, loc domain.SessionLocation) error {
	p.events = append(p.events, loc)
	return p.err
}

// interleavedStore lets another request overwrite the session right after each write.
type interleavedStore struct {
	*session.Store
	other domain.Coordinate
}

func (s *interleavedStore) SetLocation(ctx context.Context, sessionID string, c domain.Coordinate) error {
	if err := s.Store.SetLocation(ctx, sessionID, c); err != nil {
		return err
	}
	return s.Store.SetLocation(ctx, sessionID, s.other)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var seoulCityHall = domain.Coordinate{Lat: 37.5665, Lng: 126.9780}

// northOf returns a point km kilometres due north of c.
func northOf(c domain.Coordinate, km float64) domain.Coordinate {
	return domain.Coordinate{Lat: c.Lat + km/(domain.EarthRadiusKm*math.Pi/180), Lng: c.Lng}
}

func seoulDataset() []domain.POI {
	return []domain.POI{
		{ID: 3, Name: "C", Category: domain.CategoryCafe, Coordinate: northOf(seoulCityHall, 1.2)},
		{ID: 1, Name: "A", Category: domain.CategoryKorean, Coordinate: northOf(seoulCityHall, 0.3)},
		{ID: 2, Name: "B", Category: domain.CategoryChinese, Coordinate: northOf(seoulCityHall, 0.9)},
	}
}

func newTestService(repo domain.POIRepository, pub domain.LocationPublisher) (*Service, *session.Store, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClock()
	store := session.NewStore(clock, m)
	return New(repo, store, pub, clock, discardLogger(), m), store, m
}

func ids(results []domain.RankedResult) []int64 {
	out := make([]int64, 0, len(results))
	for _, r := range results {
		out = append(out, r.POI.ID)
	}
	return out
}

// --- tests ---

func TestNearby_NoLocationReturnsEmpty(t *testing.T) {
	svc, _, _ := newTestService(&memRepo{pois: seoulDataset()}, nil)

	results, err := svc.Nearby(context.Background(), "fresh", 1.0, "")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestNearby_SeoulScenario(t *testing.T) {
	svc, _, _ := newTestService(&memRepo{pois: seoulDataset()}, nil)
	ctx := context.Background()

	require.NoError(t, svc.SetLocation(ctx, "s1", seoulCityHall))

	results, err := svc.Nearby(ctx, "s1", 1.0, "")
	require.NoError(t, err)
	if diff := cmp.Diff([]int64{1, 2}, ids(results)); diff != "" {
		t.Errorf("radius 1.0 ids mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 0.3, results[0].DistanceKm, 1e-6)
	assert.InDelta(t, 0.9, results[1].DistanceKm, 1e-6)

	results, err = svc.Nearby(ctx, "s1", 3.0, "")
	require.NoError(t, err)
	if diff := cmp.Diff([]int64{1, 2, 3}, ids(results)); diff != "" {
		t.Errorf("radius 3.0 ids mismatch (-want +got):\n%s", diff)
	}
}

func TestNearby_CategoryFilter(t *testing.T) {
	svc, _, _ := newTestService(&memRepo{pois: seoulDataset()}, nil)
	ctx := context.Background()
	require.NoError(t, svc.SetLocation(ctx, "s1", seoulCityHall))

	results, err := svc.Nearby(ctx, "s1", 3.0, domain.CategoryCafe)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(results))
}

func TestNearby_RejectsNonPositiveRadius(t *testing.T) {
	svc, _, _ := newTestService(&memRepo{}, nil)

	for _, r := range []float64{0, -1} {
		_, err := svc.Nearby(context.Background(), "s1", r, "")
		require.ErrorIs(t, err, domain.ErrInvalidArgument, "radius %v", r)
	}
}

func TestNearby_DatasetUnavailable(t *testing.T) {
	repoErr := fmt.Errorf("dial: %w", domain.ErrUnavailable)
	svc, _, m := newTestService(&memRepo{err: repoErr}, nil)
	ctx := context.Background()
	require.NoError(t, svc.SetLocation(ctx, "s1", seoulCityHall))

	_, err := svc.Nearby(ctx, "s1", 1.0, "")
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DatasetErrors), 0)
}

func TestNearby_UsesLatestLocation(t *testing.T) {
	svc, _, _ := newTestService(&memRepo{pois: seoulDataset()}, nil)
	ctx := context.Background()

	require.NoError(t, svc.SetLocation(ctx, "s1", domain.Coordinate{Lat: 33.45, Lng: 126.57}))
	results, err := svc.Nearby(ctx, "s1", 3.0, "")
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, svc.SetLocation(ctx, "s1", seoulCityHall))
	results, err = svc.Nearby(ctx, "s1", 3.0, "")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestGetDetail(t *testing.T) {
	svc, _, _ := newTestService(&memRepo{pois: seoulDataset()}, nil)

	poi, err := svc.GetDetail(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "B", poi.Name)

	_, err = svc.GetDetail(context.Background(), 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAll(t *testing.T) {
	svc, _, _ := newTestService(&memRepo{pois: seoulDataset()}, nil)

	pois, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, pois, 3)

	empty, _, _ := newTestService(&memRepo{}, nil)
	pois, err = empty.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pois)
}

func TestSetLocation_InvalidCoordinate(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store, _ := newTestService(&memRepo{}, pub)

	err := svc.SetLocation(context.Background(), "s1", domain.Coordinate{Lat: 0, Lng: 181})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, pub.events)
}

func TestSetLocation_PublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, m := newTestService(&memRepo{}, pub)

	require.NoError(t, svc.SetLocation(context.Background(), "s1", seoulCityHall))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "s1", pub.events[0].SessionID)
	assert.Equal(t, seoulCityHall, pub.events[0].Coordinate)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LocationUpdates), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LocationEvents.WithLabelValues("success")), 0)
}

func TestSetLocation_PublishesOwnCoordinate(t *testing.T) {
	pub := &recordingPublisher{}
	clock := clockwork.NewFakeClock()
	busan := domain.Coordinate{Lat: 35.1796, Lng: 129.0756}
	store := &interleavedStore{Store: session.NewStore(clock, nil), other: busan}
	svc := New(&memRepo{}, store, pub, clock, discardLogger(), nil)

	require.NoError(t, svc.SetLocation(context.Background(), "s1", seoulCityHall))

	require.Len(t, pub.events, 1)
	assert.Equal(t, seoulCityHall, pub.events[0].Coordinate)
	assert.Equal(t, clock.Now(), pub.events[0].UpdatedAt)
}

func TestSetLocation_PublishFailureIsNotSurfaced(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, store, m := newTestService(&memRepo{}, pub)

	require.NoError(t, svc.SetLocation(context.Background(), "s1", seoulCityHall))

	_, ok, _ := store.GetLocation(context.Background(), "s1")
	assert.True(t, ok)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LocationEvents.WithLabelValues("error")), 0)
}

func TestCheckReadiness(t *testing.T) {
	svc, _, _ := newTestService(&memRepo{}, nil)
	require.NoError(t, svc.CheckReadiness(context.Background()))

	down, _, _ := newTestService(&memRepo{err: domain.ErrUnavailable}, nil)
	require.ErrorIs(t, down.CheckReadiness(context.Background()), domain.ErrUnavailable)
}
