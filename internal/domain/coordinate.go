package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidArgument marks input rejected at the service boundary.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a lookup for an id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks a dataset or store that could not be reached.
	ErrUnavailable = errors.New("unavailable")
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether c lies inside the WGS-84 range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidArgument, c.Lat)
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidArgument, c.Lng)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// SessionLocation is the last coordinate reported for one session.
type SessionLocation struct {
	SessionID  string     `json:"session_id"`
	Coordinate Coordinate `json:"coordinate"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
