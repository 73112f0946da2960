package domain

import "context"

// POIRepository is the read interface over the restaurant dataset.
type POIRepository interface {
	// All returns every POI. Implementations wrap transport failures in ErrUnavailable.
	All(ctx context.Context) ([]POI, error)

	// ByID returns one POI or an error wrapping ErrNotFound.
	ByID(ctx context.Context, id int64) (POI, error)

	// Ping reports whether the dataset is reachable.
	Ping(ctx context.Context) error
}

// SessionStore holds the last known coordinate per session.
type SessionStore interface {
	SetLocation(ctx context.Context, sessionID string, c Coordinate) error
	GetLocation(ctx context.Context, sessionID string) (SessionLocation, bool, error)
}

// LocationPublisher announces session location updates to downstream consumers.
type LocationPublisher interface {
	PublishLocation(ctx context.Context, loc SessionLocation) error
}

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Coordinate Coordinate
	RegionName string  // administrative region, e.g. "수원시"
	PlaceName  string  // provider's full formatted name
	Confidence float64 // 0.0–1.0 provider confidence score
}

// Found reports whether the provider matched anything.
func (r GeocodingResult) Found() bool {
	return r.PlaceName != "" || r.Coordinate != (Coordinate{})
}

// Geocoder resolves free-text places into coordinates.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)
}
