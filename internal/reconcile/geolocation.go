package reconcile

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned by a Geolocator when the user refuses access.
var ErrPermissionDenied = errors.New("geolocation permission denied")

// GeolocationErrorKind tells the user why their position could not be used.
type GeolocationErrorKind int

const (
	GeolocationUnavailable GeolocationErrorKind = iota
	GeolocationDenied
	GeolocationTimeout
)

func (k GeolocationErrorKind) String() string {
	switch k {
	case GeolocationDenied:
		return "denied"
	case GeolocationTimeout:
		return "timeout"
	default:
		return "unavailable"
	}
}

// GeolocationError reports a failed device position request.
type GeolocationError struct {
	Kind GeolocationErrorKind
	Err  error
}

func (e *GeolocationError) Error() string {
	return fmt.Sprintf("geolocation %s: %v", e.Kind, e.Err)
}

func (e *GeolocationError) Unwrap() error { return e.Err }

func classifyGeolocation(err error) *GeolocationError {
	var ge *GeolocationError
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, ErrPermissionDenied) {
		return &GeolocationError{Kind: GeolocationDenied, Err: err}
	}
	return &GeolocationError{Kind: GeolocationUnavailable, Err: err}
}
