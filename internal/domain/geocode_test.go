package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, _ string) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestResolvePlace_NilGeocoder(t *testing.T) {
	_, ok := ResolvePlace(context.Background(), nil, "수원시", discardLogger())
	assert.False(t, ok)
}

func TestResolvePlace_BlankQuery(t *testing.T) {
	geo := &mockGeocoder{}
	_, ok := ResolvePlace(context.Background(), geo, "   ", discardLogger())

	assert.False(t, ok)
	assert.Equal(t, 0, geo.calls)
}

func TestResolvePlace_Success(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{
			Coordinate: Coordinate{Lat: 37.2636, Lng: 127.0286},
			RegionName: "수원시",
			PlaceName:  "수원시, 경기도, 대한민국",
			Confidence: 0.9,
		},
	}

	result, ok := ResolvePlace(context.Background(), geo, "수원시", discardLogger())

	assert.True(t, ok)
	assert.Equal(t, 37.2636, result.Coordinate.Lat)
	assert.Equal(t, "수원시", result.RegionName)
	assert.Equal(t, 1, geo.calls)
}

func TestResolvePlace_DefaultsRegionNameToQuery(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{Coordinate: Coordinate{Lat: 37.6, Lng: 126.9}, PlaceName: "은평구"},
	}

	result, ok := ResolvePlace(context.Background(), geo, "은평구", discardLogger())

	assert.True(t, ok)
	assert.Equal(t, "은평구", result.RegionName)
}

func TestResolvePlace_ProviderError(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("mapbox down")}
	_, ok := ResolvePlace(context.Background(), geo, "수원시", discardLogger())
	assert.False(t, ok)
}

func TestResolvePlace_NoMatch(t *testing.T) {
	geo := &mockGeocoder{}
	_, ok := ResolvePlace(context.Background(), geo, "없는곳", discardLogger())
	assert.False(t, ok)
}

func TestResolvePlace_InvalidCoordinate(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{Coordinate: Coordinate{Lat: 200, Lng: 0}, PlaceName: "broken"},
	}
	_, ok := ResolvePlace(context.Background(), geo, "broken", discardLogger())
	assert.False(t, ok)
}
