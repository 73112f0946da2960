package domain

import (
	"context"
	"log/slog"
	"strings"
)

// ResolvePlace geocodes a free-text place name. If geocoder is nil, the query is
// blank, or the provider fails or returns an out-of-range coordinate, it reports
// false and the caller continues without a coordinate (graceful degradation).
func ResolvePlace(ctx context.Context, geocoder Geocoder, query string, logger *slog.Logger) (GeocodingResult, bool) {
	query = strings.TrimSpace(query)
	if geocoder == nil || query == "" {
		return GeocodingResult{}, false
	}

	result, err := geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		logger.Warn("forward geocoding failed", "query", query, "error", err)
		return GeocodingResult{}, false
	}
	if !result.Found() {
		logger.Debug("forward geocoding returned no match", "query", query)
		return GeocodingResult{}, false
	}
	if err := result.Coordinate.Validate(); err != nil {
		logger.Warn("geocoder returned invalid coordinate", "query", query, "error", err)
		return GeocodingResult{}, false
	}
	if result.RegionName == "" {
		result.RegionName = query
	}
	return result, true
}
